package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Text is a JSON scalar read as a string. The modern portal sends codes and ids either
// quoted or as bare numbers depending on the product.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("Text: unexpected value %s", data)
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string { return string(t) }
