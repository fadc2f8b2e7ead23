// Package configs embeds the configuration template shipped with the
// medsearch binary. Embedding keeps `medsearch config init` working in
// every distribution, including `go install` builds.
package configs

import _ "embed"

// ConfigTemplate is the annotated default configuration written by
// `medsearch config init`.
//
//go:embed medsearch.example.yaml
var ConfigTemplate string
