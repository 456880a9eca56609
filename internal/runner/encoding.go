package runner

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// codePages maps Windows code page identifiers to decoders.
var codePages = map[uint32]encoding.Encoding{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	866:   charmap.CodePage866,
	932:   japanese.ShiftJIS,
	936:   simplifiedchinese.GBK,
	949:   korean.EUCKR,
	950:   traditionalchinese.Big5,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	65001: unicode.UTF8,
}

// Encoding resolves a code page name to a decoder. Accepted forms are "auto"
// (the host's ANSI code page), "cpNNN", a bare number, or any WHATWG label such
// as "gbk" or "windows-1252". "utf-8" and "" both mean no transcoding.
func Encoding(name string) (encoding.Encoding, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "utf-8", "utf8", "65001":
		return nil, nil
	case "auto":
		return codePage(hostCodePage())
	}

	var cp uint32
	if _, err := fmt.Sscanf(strings.TrimPrefix(name, "cp"), "%d", &cp); err == nil {
		return codePage(cp)
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown code page %q: %w", name, err)
	}
	return enc, nil
}

func codePage(cp uint32) (encoding.Encoding, error) {
	if cp == 65001 {
		return nil, nil
	}
	enc, ok := codePages[cp]
	if !ok {
		return nil, fmt.Errorf("unsupported code page %d", cp)
	}
	return enc, nil
}
