package domain

import "strings"

// ParseMember splits an archive member name "lib.a(m.o)" into the archive
// path and the member name.
func ParseMember(name string) (archive, member string, ok bool) {
	if !strings.HasSuffix(name, ")") {
		return "", "", false
	}
	open := strings.IndexByte(name, '(')
	if open <= 0 || open == len(name)-2 {
		return "", "", false
	}
	return name[:open], name[open+1 : len(name)-1], true
}

// MemberName joins an archive path and a member into a node name.
func MemberName(archive, member string) string {
	return archive + "(" + member + ")"
}

// ExpandMembers turns "lib.a(a.o b.o)" into one node name per member. Names
// that are not member lists are returned as is.
func ExpandMembers(name string) []string {
	archive, members, ok := ParseMember(name)
	if !ok {
		return []string{name}
	}
	fields := strings.Fields(members)
	out := make([]string, 0, len(fields))
	for _, m := range fields {
		out = append(out, MemberName(archive, m))
	}
	return out
}

// LibraryName maps "-lfoo" to "libfoo". ok is false for other names.
func LibraryName(name string) (string, bool) {
	lib, ok := strings.CutPrefix(name, "-l")
	if !ok || lib == "" {
		return "", false
	}
	return "lib" + lib, true
}

// SplitWords splits s at white space that is not inside parentheses, so a
// member list "lib.a(a.o b.o)" stays one word.
func SplitWords(s string) []string {
	var (
		out   []string
		depth int
		start = -1
	)
	for i, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case depth == 0 && (r == ' ' || r == '\t' || r == '\n'):
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}
