package codegen

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"text/template"
)

//go:embed templates
var templatesFS embed.FS

var handlerTemplate = template.Must(template.ParseFS(templatesFS, "templates/lambda_handler.py.tmpl"))

// HandlerParams parameterize the generated request handler.
type HandlerParams struct {
	ModelName string
}

// RenderHandler produces the source of the function that fronts the
// inference endpoint: look-aside cache check, endpoint invocation, cache
// fill, generic 500 on any internal error.
func RenderHandler(params HandlerParams) (string, error) {
	var buf bytes.Buffer
	if err := handlerTemplate.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("failed to render handler: %v", err)
	}
	return buf.String(), nil
}

// CacheKey mirrors the properties of the generated handler's cache key
// derivation: SHA-256 over a canonical (key-sorted) JSON encoding of the
// request body, so bodies differing only in object key order hash to the
// same key while any value change produces a new one. The digests are not
// byte-compatible with the handler's, whose encoder spaces its separators
// differently.
func CacheKey(body []byte) (string, error) {
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("request body is not valid json: %v", err)
	}
	canonical, err := json.Marshal(decoded)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize request body: %v", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
