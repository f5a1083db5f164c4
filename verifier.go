package mailscope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mailscope/mailscope/check"
	"github.com/mailscope/mailscope/internal/bundled"
	"github.com/mailscope/mailscope/internal/dataset"
	"github.com/mailscope/mailscope/internal/dnscache"
	"github.com/mailscope/mailscope/internal/fetch"
	"github.com/mailscope/mailscope/internal/levenshtein"
	"github.com/mailscope/mailscope/internal/parse"
	"github.com/mailscope/mailscope/internal/psl"
	"github.com/mailscope/mailscope/internal/source"
	"github.com/mailscope/mailscope/types"
)

// Verifier is the main fluent builder struct. Instantiate with New().
// Syntax checking always runs; every other check is opt-in via the
// With* methods. Checkers are constructed lazily on the first Verify
// or Refresh call, so the Offline override applies regardless of
// call order.
type Verifier struct {
	err     error // configuration error, returned on Verify()
	log     *logrus.Logger
	offline bool

	regOpts     *RegistrabilityOptions
	dispOpts    *DatasetOptions
	freeOpts    *DatasetOptions
	roleOpts    *DatasetOptions
	mxOpts      *MXOptions
	smtpOpts    *SMTPOptions
	gravOpts    *GravatarOptions
	suggestOpts *SuggestionOptions

	buildMu sync.Mutex
	built   bool

	syntax      *check.SyntaxChecker
	registrable *check.RegistrableChecker
	disposable  *check.DatasetChecker
	free        *check.DatasetChecker
	role        *check.DatasetChecker
	resolver    check.Resolver
	smtp        *check.SMTPProber
	gravatar    *check.GravatarChecker

	refreshers []namedRefresher
}

type namedRefresher struct {
	name    string
	refresh func(context.Context) error
}

// New creates a new Verifier that performs syntax checking only.
func New() *Verifier {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Verifier{
		log:    log,
		syntax: check.NewSyntaxChecker(),
	}
}

// WithLogger routes warnings (skipped dataset lines, refresh and
// probe failures) to the given logger. The default logger discards
// everything.
func (v *Verifier) WithLogger(log *logrus.Logger) *Verifier {
	if log != nil {
		v.log = log
	}
	return v
}

// Offline is a global override: remote data sources fall back to the
// bundled snapshots and the network-dependent checks (MX, SMTP,
// avatar) resolve to Skipped.
func (v *Verifier) Offline() *Verifier {
	v.offline = true
	return v
}

// WithRegistrability enables the registrable-domain check.
func (v *Verifier) WithRegistrability(opts ...RegistrabilityOptions) *Verifier {
	o := RegistrabilityOptions{}
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.FilePath != "" && o.RemoteURL != "" {
		v.err = ErrConflictingDataSource
		return v
	}
	v.regOpts = &o
	return v
}

// WithDisposable enables the disposable-domain check.
func (v *Verifier) WithDisposable(opts ...DatasetOptions) *Verifier {
	v.dispOpts = v.datasetOpts(opts)
	return v
}

// WithFreeProvider enables the free-mailbox-provider check.
func (v *Verifier) WithFreeProvider(opts ...DatasetOptions) *Verifier {
	v.freeOpts = v.datasetOpts(opts)
	return v
}

// WithRoleAccount enables the role-based-username check.
func (v *Verifier) WithRoleAccount(opts ...DatasetOptions) *Verifier {
	v.roleOpts = v.datasetOpts(opts)
	return v
}

func (v *Verifier) datasetOpts(opts []DatasetOptions) *DatasetOptions {
	o := DatasetOptions{}
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.FilePath != "" && o.RemoteURL != "" {
		v.err = ErrConflictingDataSource
	}
	return &o
}

// WithMX enables mail-exchanger resolution.
func (v *Verifier) WithMX(opts ...MXOptions) *Verifier {
	o := defaultMXOptions()
	if len(opts) > 0 {
		def := defaultMXOptions()
		o = opts[0]
		if o.Timeout == 0 {
			o.Timeout = def.Timeout
		}
		if o.CacheTTL == 0 {
			o.CacheTTL = def.CacheTTL
		}
	}
	v.mxOpts = &o
	return v
}

// WithSMTP enables the SMTP deliverability probe. HelloDomain and
// FromAddress are required. Enabling SMTP implies MX resolution.
func (v *Verifier) WithSMTP(opts SMTPOptions) *Verifier {
	if opts.HelloDomain == "" || opts.FromAddress == "" {
		v.err = ErrInvalidSMTPOptions
		return v
	}
	v.smtpOpts = &opts
	if v.mxOpts == nil {
		v.WithMX()
	}
	return v
}

// WithGravatar enables the avatar presence check.
func (v *Verifier) WithGravatar(opts ...GravatarOptions) *Verifier {
	o := GravatarOptions{}
	if len(opts) > 0 {
		o = opts[0]
	}
	v.gravOpts = &o
	return v
}

// WithSuggestion enables did-you-mean hostname suggestions.
func (v *Verifier) WithSuggestion(opts ...SuggestionOptions) *Verifier {
	o := defaultSuggestionOptions()
	if len(opts) > 0 {
		if opts[0].Threshold > 0 {
			o.Threshold = opts[0].Threshold
		}
		if len(opts[0].Domains) > 0 {
			o.Domains = opts[0].Domains
		}
	}
	v.suggestOpts = &o
	return v
}

// build constructs the configured checkers and performs the initial
// dataset loads. Failures are retried on the next call.
func (v *Verifier) build(ctx context.Context) error {
	v.buildMu.Lock()
	defer v.buildMu.Unlock()
	return v.buildLocked(ctx)
}

func (v *Verifier) buildLocked(ctx context.Context) error {
	if v.built {
		return nil
	}

	var fetcher fetch.Fetcher
	newSource := func(filePath, remoteURL, bundledText string) source.Source {
		switch {
		case filePath != "":
			return source.NewFile(filePath)
		case remoteURL != "" && !v.offline:
			if fetcher == nil {
				fetcher = fetch.New(fetch.Config{Logger: v.log})
			}
			return source.NewRemote(remoteURL, fetcher)
		default:
			return source.NewStatic(bundledText)
		}
	}

	v.refreshers = nil

	if v.regOpts != nil {
		list := psl.New(
			newSource(v.regOpts.FilePath, v.regOpts.RemoteURL, bundled.Suffixes),
			v.regOpts.CustomRules,
			v.log,
		)
		v.registrable = check.NewRegistrableChecker(list)
		v.refreshers = append(v.refreshers, namedRefresher{"registrability", v.registrable.Refresh})
	}

	newDataset := func(name string, o *DatasetOptions, mode dataset.Mode, bundledText string) *check.DatasetChecker {
		m := dataset.New(mode, newSource(o.FilePath, o.RemoteURL, bundledText), o.Allow, o.Deny, v.log)
		c := check.NewDatasetChecker(m)
		v.refreshers = append(v.refreshers, namedRefresher{name, c.Refresh})
		return c
	}

	if v.dispOpts != nil {
		v.disposable = newDataset("disposable", v.dispOpts, dataset.ModeHierarchical, bundled.DisposableDomains)
	}
	if v.freeOpts != nil {
		v.free = newDataset("free-provider", v.freeOpts, dataset.ModeHierarchical, bundled.FreeProviders)
	}
	if v.roleOpts != nil {
		v.role = newDataset("role-account", v.roleOpts, dataset.ModeExact, bundled.RoleUsernames)
	}

	if v.mxOpts != nil && !v.offline {
		backend := v.mxOpts.Resolver
		if backend == nil {
			if v.mxOpts.DoHEndpoint != "" {
				backend = check.NewDoHResolver(v.mxOpts.DoHEndpoint, v.mxOpts.Timeout)
			} else {
				backend = check.NewStdResolver()
			}
		}
		v.resolver = dnscache.New(backend, v.mxOpts.CacheTTL)
	}

	if v.smtpOpts != nil && !v.offline {
		cfg := check.SMTPConfig{
			HelloDomain:   v.smtpOpts.HelloDomain,
			FromAddress:   v.smtpOpts.FromAddress,
			Port:          v.smtpOpts.Port,
			Timeout:       v.smtpOpts.Timeout,
			MaxRetries:    v.smtpOpts.MaxRetries,
			CheckCatchAll: v.smtpOpts.CheckCatchAll,
			ProxyAddr:     v.smtpOpts.ProxyAddr,
		}
		if v.smtpOpts.Dial != nil {
			v.smtp = check.NewSMTPProberWithDial(cfg, v.log, v.smtpOpts.Dial)
		} else {
			prober, err := check.NewSMTPProber(cfg, v.log)
			if err != nil {
				return err
			}
			v.smtp = prober
		}
	}

	if v.gravOpts != nil && !v.offline {
		v.gravatar = check.NewGravatarChecker(check.GravatarConfig{
			Base:    v.gravOpts.Base,
			Timeout: v.gravOpts.Timeout,
		})
	}

	if err := v.refreshLocked(ctx); err != nil {
		return err
	}

	v.built = true
	return nil
}

// Refresh reloads every dataset-backed checker (suffix rules and
// membership datasets). A failed reload keeps the previous snapshot
// in effect for that checker; the combined error reports every
// failure.
func (v *Verifier) Refresh(ctx context.Context) error {
	if v.err != nil {
		return v.err
	}
	v.buildMu.Lock()
	defer v.buildMu.Unlock()
	if !v.built {
		return v.buildLocked(ctx)
	}
	return v.refreshLocked(ctx)
}

func (v *Verifier) refreshLocked(ctx context.Context) error {
	var errs []error
	for _, r := range v.refreshers {
		if err := r.refresh(ctx); err != nil {
			v.log.WithField("dataset", r.name).WithError(err).Warn("dataset refresh failed")
			errs = append(errs, fmt.Errorf("refresh %s: %w", r.name, err))
		}
	}
	return errors.Join(errs...)
}

// runCheck wraps one checker invocation into the four-state result:
// disabled or unmet precondition means Skipped, a collaborator error
// means Errored, otherwise the checker's own verdict selects Passed
// or Failed with the payload attached to either.
func runCheck[T any](enabled, precondition bool, fn func() (T, bool, error)) types.CheckResult[T] {
	if !enabled || !precondition {
		return types.Skipped[T]()
	}
	data, ok, err := fn()
	if err != nil {
		return types.Errored[T](err)
	}
	if ok {
		return types.Passed(data)
	}
	return types.Failed(data)
}

// Verify runs all configured checks on the given email address.
// Independent checks run concurrently; MX always completes before the
// SMTP probe starts. The returned error covers configuration and
// initial dataset-load problems only; per-check collaborator failures
// land in the result as Errored.
func (v *Verifier) Verify(ctx context.Context, email string) (Result, error) {
	if v.err != nil {
		return Result{}, v.err
	}
	if err := v.build(ctx); err != nil {
		return Result{}, err
	}

	res := Result{Email: email}

	addr, err := parse.Parse(email)
	if err != nil {
		// Malformed input fails the syntax field; every other check
		// reads as Skipped via the zero value.
		res.Syntax = types.FailedEmpty[check.Validity]()
		return res, nil
	}
	res.Parts = addr

	validity := v.syntax.Check(addr)
	if validity.OK() {
		res.Syntax = types.Passed(validity)
	} else {
		res.Syntax = types.Failed(validity)
	}

	hostOK := validity.Hostname
	userOK := validity.Username
	if hostOK {
		res.Suggestion = v.suggestion(addr.Hostname)
	}

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	mxDone := make(chan struct{})

	run(func() {
		res.Registrable = runCheck(v.registrable != nil, hostOK, func() (string, bool, error) {
			domain, ok := v.registrable.Check(addr.Hostname)
			return domain, ok, nil
		})
	})
	run(func() {
		res.Disposable = runCheck(v.disposable != nil, hostOK, func() (check.Match, bool, error) {
			m := v.disposable.Check(addr.Hostname)
			return m, !m.Hit, nil
		})
	})
	run(func() {
		res.FreeProvider = runCheck(v.free != nil, hostOK, func() (check.Match, bool, error) {
			m := v.free.Check(addr.Hostname)
			return m, !m.Hit, nil
		})
	})
	run(func() {
		res.RoleAccount = runCheck(v.role != nil, userOK, func() (check.Match, bool, error) {
			m := v.role.Check(addr.Username)
			return m, !m.Hit, nil
		})
	})
	run(func() {
		defer close(mxDone)
		res.MX = runCheck(v.resolver != nil, hostOK, func() ([]MxRecord, bool, error) {
			records, err := v.resolver.LookupMX(ctx, addr.Hostname)
			if err != nil {
				return nil, false, err
			}
			return records, len(records) > 0, nil
		})
	})
	run(func() {
		<-mxDone
		records, _ := res.MX.Data()
		res.SMTP = runCheck(v.smtp != nil, userOK && hostOK && res.MX.Passed(),
			func() (check.SMTPOutcome, bool, error) {
				out, err := v.smtp.Probe(ctx, addr, records)
				if err != nil {
					return check.SMTPOutcome{}, false, err
				}
				return out, out.Deliverable, nil
			})
	})
	run(func() {
		res.Gravatar = runCheck(v.gravatar != nil, userOK && hostOK, func() (string, bool, error) {
			return v.gravatar.Check(ctx, addr)
		})
	})

	wg.Wait()
	return res, nil
}

// suggestion returns the closest well-known provider within the edit
// distance threshold, or "" when suggestions are disabled, the
// hostname matches exactly, or nothing is close enough.
func (v *Verifier) suggestion(hostname string) string {
	if v.suggestOpts == nil {
		return ""
	}
	bestDist := v.suggestOpts.Threshold + 1
	best := ""
	for _, domain := range v.suggestOpts.Domains {
		if hostname == domain {
			return ""
		}
		if d := levenshtein.Distance(hostname, domain); d < bestDist {
			bestDist = d
			best = domain
		}
	}
	return best
}

// VerifyMany verifies multiple addresses concurrently. The result
// order matches the input slice order. Addresses are processed in
// hostname order for MX cache locality.
func (v *Verifier) VerifyMany(ctx context.Context, emails []string, opts ...ConcurrencyOptions) ([]Result, error) {
	if v.err != nil {
		return nil, v.err
	}
	if err := v.build(ctx); err != nil {
		return nil, err
	}

	workers := 5
	if len(opts) > 0 && opts[0].Workers > 0 {
		workers = opts[0].Workers
	}

	type job struct {
		idx      int
		email    string
		hostname string
	}

	jobSlice := make([]job, len(emails))
	for i, e := range emails {
		hostname := ""
		if at := strings.LastIndex(e, "@"); at >= 0 {
			hostname = strings.ToLower(e[at+1:])
		}
		jobSlice[i] = job{idx: i, email: e, hostname: hostname}
	}
	sort.Slice(jobSlice, func(i, j int) bool {
		return jobSlice[i].hostname < jobSlice[j].hostname
	})

	jobs := make(chan job, len(jobSlice))
	for _, j := range jobSlice {
		jobs <- j
	}
	close(jobs)

	results := make([]Result, len(emails))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res, err := v.Verify(ctx, j.email)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("verifying %q: %w", j.email, err)
					}
					mu.Unlock()
					continue
				}
				results[j.idx] = res
			}
		}()
	}

	wg.Wait()
	return results, firstErr
}
