package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"olympos.io/encoding/edn"
)

// WriteEDN renders v as EDN. Values go through their JSON form first, so
// struct tags apply. Map keys become keywords in sorted order.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := encodeEDN(&buf, generic); err != nil {
		return err
	}
	out := buf.Bytes()
	if pretty {
		var ind bytes.Buffer
		if err := edn.Indent(&ind, out, "", "  "); err != nil {
			return err
		}
		out = ind.Bytes()
	}
	if _, err := w.Write(out); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

func encodeEDN(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("nil")
	case bool:
		buf.WriteString(strconv.FormatBool(x))
	case float64:
		buf.WriteString(formatNumber(x))
	case string:
		b, err := edn.Marshal(x)
		if err != nil {
			return err
		}
		buf.Write(b)
	case []any:
		buf.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				buf.WriteByte(' ')
			}
			if err := encodeEDN(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(' ')
			}
			kw, err := edn.Marshal(edn.Keyword(keywordName(k)))
			if err != nil {
				return err
			}
			buf.Write(kw)
			buf.WriteByte(' ')
			if err := encodeEDN(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("edn: unsupported value %T", v)
	}
	return nil
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func keywordName(k string) string {
	k = strings.TrimSpace(k)
	if k == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '-'
		}
		return r
	}, k)
}
