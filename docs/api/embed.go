// Package apidocs embeds the OpenAPI document served at /swagger/spec.
package apidocs

import _ "embed"

//go:embed openapi.yaml
var OpenAPI []byte
