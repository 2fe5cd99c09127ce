package reconcile

import "strings"

var nicknames = map[string]string{
	"bill":  "william",
	"will":  "william",
	"mike":  "michael",
	"bob":   "robert",
	"rob":   "robert",
	"jim":   "james",
	"tom":   "thomas",
	"dick":  "richard",
	"rick":  "richard",
	"dan":   "daniel",
	"joe":   "joseph",
	"tony":  "anthony",
	"chris": "christopher",
	"matt":  "matthew",
	"dave":  "david",
	"tim":   "timothy",
	"greg":  "gregory",
	"ed":    "edward",
	"andy":  "andrew",
	"nick":  "nicholas",
	"ben":   "benjamin",
	"jon":   "jonathan",
	"liz":   "elizabeth",
	"beth":  "elizabeth",
	"kate":  "katherine",
	"jen":   "jennifer",
	"sue":   "susan",
}

// ExpandNickname maps a lowercase first name to its formal form. Names not in
// the table come back unchanged.
func ExpandNickname(first string) string {
	if full, ok := nicknames[strings.ToLower(first)]; ok {
		return full
	}
	return first
}
