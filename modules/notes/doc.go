// Package notes extracts SAVE_MEMORY directives from model replies and
// appends the remembered text to one markdown note file per calendar day.
//
// A directive is a reply line starting with the literal "SAVE_MEMORY:" at
// column zero. Each entry is written as
//
//	\n**HH:MM** — <text>\n
//
// to <dir>/<YYYY-MM-DD>.md using the sink clock's local time.
package notes
