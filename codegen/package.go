package codegen

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// HandlerFileName is the file name the Lambda runtime resolves the handler
// module from.
const HandlerFileName = "lambda_handler.py"

// PackageHandler zips a single generated handler source into a deployable
// bundle. No build step, no dependency bundling: the handler only uses what
// the python runtime provides natively.
func PackageHandler(source string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create(HandlerFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(source)); err != nil {
		return nil, fmt.Errorf("failed to write handler source: %v", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize zip: %v", err)
	}
	return buf.Bytes(), nil
}
