package auth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/portal/extract"
)

// DecodeTable maps a digit displayed on the legacy keypad to the code the portal expects.
type DecodeTable map[string]string

// BuildDecodeTable reads the legacy keypad. Each non-empty key carries the code of its digit
// in the onclick handler of its cell.
func BuildDecodeTable(doc *goquery.Document) (DecodeTable, error) {
	table := DecodeTable{}
	var err error
	doc.Find("#pave-saisie-code td a").EachWithBreak(func(_ int, key *goquery.Selection) bool {
		digit := strings.TrimSpace(key.Text())
		if digit == "" {
			return true
		}
		onclick, _ := key.Closest("td").Attr("onclick")
		code, ok := extract.QuotedArg(onclick)
		if !ok {
			err = domain.NewError(domain.KindUnparseable, fmt.Sprintf("keypad key %q has no code", digit), nil)
			return false
		}
		table[digit] = code
		return true
	})
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, domain.NewError(domain.KindUnparseable, "legacy keypad not found", nil)
	}
	return table, nil
}

// EncodeLegacyPassword translates each password digit through the keypad table.
func EncodeLegacyPassword(table DecodeTable, password string) (string, error) {
	codes := make([]string, 0, len(password))
	for _, r := range password {
		code, ok := table[string(r)]
		if !ok {
			return "", domain.NewError(domain.KindLoginFailed, "password contains a character absent from the keypad", nil)
		}
		codes = append(codes, code)
	}
	return strings.Join(codes, ","), nil
}

// KeyLayout is the ordered list of digits of a modern keypad.
type KeyLayout []string

// UnmarshalJSON accepts digits sent either as strings or as numbers.
func (k *KeyLayout) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(KeyLayout, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(item, &n); err != nil {
			return fmt.Errorf("KeyLayout: unexpected key %s", item)
		}
		out = append(out, n.String())
	}
	*k = out
	return nil
}

// EncodeKeypadPositions reports the position of each password digit in the layout.
func EncodeKeypadPositions(layout KeyLayout, password string) (string, error) {
	index := make(map[string]int, len(layout))
	for i, key := range layout {
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	positions := make([]string, 0, len(password))
	for _, r := range password {
		i, ok := index[string(r)]
		if !ok {
			return "", domain.NewError(domain.KindLoginFailed, "password contains a character absent from the keypad", nil)
		}
		positions = append(positions, strconv.Itoa(i))
	}
	return strings.Join(positions, ","), nil
}
