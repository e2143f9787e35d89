package newsroom

import "encoding/base64"

// doneSentinel is what the final page token decodes to.
const doneSentinel = "DONE"

// PageToken is an opaque continuation cursor issued by the server. The empty
// token requests the first page. Clients pass the latest token back verbatim
// and never look inside it, except through Exhausted.
type PageToken string

// DoneToken is the token a server hands out with the final page.
var DoneToken = EncodeToken(doneSentinel)

// EncodeToken wraps a server-side cursor into a PageToken.
func EncodeToken(cursor string) PageToken {
	return PageToken(base64.StdEncoding.EncodeToString([]byte(cursor)))
}

// Decode unwraps a token produced by EncodeToken. Only servers should need this.
func (t PageToken) Decode() (string, error) {
	data, err := base64.StdEncoding.DecodeString(string(t))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// IsZero reports whether the token requests the first page.
func (t PageToken) IsZero() bool {
	return t == ""
}

// Exhausted reports whether the token signals that no further pages exist.
// Tokens that are not valid base64 are treated as live cursors.
func (t PageToken) Exhausted() bool {
	cursor, err := t.Decode()
	if err != nil {
		return false
	}
	return cursor == doneSentinel
}
