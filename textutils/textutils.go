// Package textutils provides shared character and string constants used
// across the other packages for lightweight parsing (property files, path
// splitting, log formatting) without each package redeclaring its own
// punctuation literals.
package textutils

const (
	EmptyStr      = ""
	WhiteSpaceStr = " "
	NewLineString = "\n"
	PeriodStr     = "."
	ColonStr      = ":"
	SemiColonStr  = ";"
	EqualStr      = "="
	ForwardSlashStr = "/"
	CloseBraceStr = "}"
)

const (
	ALowerChar       rune = 'a'
	ZLowerChar       rune = 'z'
	AUpperChar       rune = 'A'
	ZUpperChar       rune = 'Z'
	BackSlashChar    rune = '\\'
	ColonChar        rune = ':'
	DollarChar       rune = '$'
	EqualChar        rune = '='
	ForwardSlashChar rune = '/'
	HashChar         rune = '#'
	OpenBraceChar    rune = '{'
	CloseBraceChar   rune = '}'
)
