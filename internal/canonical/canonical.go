package canonical

import (
	"encoding/json"

	"github.com/gowebpki/jcs"
	"github.com/m-mizutani/goerr/v2"
)

// JSON marshals v and returns its RFC 8785 (JCS) canonical form, so equal
// values always serialize to identical bytes.
func JSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal value")
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to canonicalize json")
	}
	return out, nil
}
