package iban

// maxSubstitutions bounds the look-alike chain. The table is partly cyclic
// (O->0, 0->O), so the bound is what terminates the walk.
const maxSubstitutions = 2

// lookalikes maps a glyph to the character OCR most often confuses it with.
// Two steps cover chains such as s -> S -> 5.
var lookalikes = map[byte]byte{
	's': 'S',
	'S': '5',
	'5': 'S',
	'o': 'O',
	'Q': 'O',
	'O': '0',
	'0': 'O',
	'l': 'I',
	'I': '1',
	'1': 'I',
	'B': '8',
	'8': 'B',
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// toDigit walks the look-alike table from c until it lands on a digit or runs
// out of substitutions.
func toDigit(c byte) (byte, bool) {
	for i := 0; !isDigit(c) && i < maxSubstitutions; i++ {
		alt, ok := lookalikes[c]
		if !ok {
			break
		}
		c = alt
	}
	return c, isDigit(c)
}

// coerceDigits converts every character of s to a digit or fails.
func coerceDigits(s string) (string, bool) {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		d, ok := toDigit(s[i])
		if !ok {
			return "", false
		}
		out[i] = d
	}
	return string(out), true
}
