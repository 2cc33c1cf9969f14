package uke

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// EncodeShiftJIS converts the rendered file to Shift_JIS. Characters outside
// the charset are replaced and reported by returning lossy true.
func EncodeShiftJIS(text string) (out []byte, lossy bool, err error) {
	out, _, err = transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(text))
	if err == nil {
		return out, false, nil
	}
	out, _, err = transform.Bytes(encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder()), []byte(text))
	if err != nil {
		return nil, true, err
	}
	return out, true, nil
}
