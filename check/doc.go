// Package check contains the individual verification checks: syntax,
// registrable domain, dataset membership, MX resolution, the SMTP
// deliverability probe and the avatar lookup. Each checker can be
// used directly, but the recommended approach is the fluent builder
// API of the github.com/mailscope/mailscope package, which wires data
// sources, caching and concurrency around them.
package check
