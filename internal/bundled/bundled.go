// Package bundled carries snapshot copies of the datasets the checks
// need, so the library works offline out of the box. Remote and file
// sources exist for callers that want current data.
package bundled

import _ "embed"

//go:embed suffixes.txt
var Suffixes string

//go:embed disposable.txt
var DisposableDomains string

//go:embed free.txt
var FreeProviders string

//go:embed roles.txt
var RoleUsernames string
