package cmds

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"src.oopis.sh/pkg/eval"
	"src.oopis.sh/pkg/oserr"
)

// splitLines splits content into lines without a trailing empty line for
// newline-terminated content.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

func catCmd() *eval.Command {
	return &eval.Command{
		Name:        "cat",
		Description: "concatenate files to output",
		Usage:       "[-n] [file...]",
		Flags: []eval.FlagDef{
			{Long: "number", Short: "n", Help: "number output lines"},
		},
		Args:        eval.AnyArgs,
		Completion:  eval.CompletePaths,
		InputStream: true,
		Run: func(ctx *eval.Context) error {
			if !ctx.Bool("number") {
				for _, item := range ctx.Items {
					ctx.Print(item.Content)
				}
				return nil
			}
			lineno := 0
			for _, item := range ctx.Items {
				for _, line := range splitLines(item.Content) {
					lineno++
					ctx.Printf("%6d  %s\n", lineno, line)
				}
			}
			return nil
		},
	}
}

func nlCmd() *eval.Command {
	return &eval.Command{
		Name:        "nl",
		Description: "number non-empty lines",
		Usage:       "[file...]",
		Args:        eval.AnyArgs,
		Completion:  eval.CompletePaths,
		InputStream: true,
		Run: func(ctx *eval.Context) error {
			lineno := 0
			for _, item := range ctx.Items {
				for _, line := range splitLines(item.Content) {
					if line == "" {
						ctx.Println("")
						continue
					}
					lineno++
					ctx.Printf("%6d\t%s\n", lineno, line)
				}
			}
			return nil
		},
	}
}

func cutCmd() *eval.Command {
	return &eval.Command{
		Name:        "cut",
		Description: "select fields or characters from each line",
		Usage:       "-f list [-d delim] [file...] | -c list [file...]",
		Flags: []eval.FlagDef{
			{Long: "fields", Short: "f", TakesValue: true, Help: "field list, e.g. 1,3-5"},
			{Long: "delimiter", Short: "d", TakesValue: true, Help: "field delimiter (default TAB)"},
			{Long: "characters", Short: "c", TakesValue: true, Help: "character list"},
		},
		Args:        eval.AnyArgs,
		Completion:  eval.CompletePaths,
		InputStream: true,
		Run: func(ctx *eval.Context) error {
			fieldList, charList := ctx.String("fields"), ctx.String("characters")
			if (fieldList == "") == (charList == "") {
				return oserr.Newf(oserr.Usage, "cut: exactly one of -f and -c is required")
			}
			list := fieldList
			if charList != "" {
				list = charList
			}
			ranges, err := parseRangeList(list)
			if err != nil {
				return err
			}
			delim := ctx.String("delimiter")
			if delim == "" {
				delim = "\t"
			}
			for _, item := range ctx.Items {
				for _, line := range splitLines(item.Content) {
					if charList != "" {
						runes := []rune(line)
						var b strings.Builder
						for i, r := range runes {
							if ranges.contains(i + 1) {
								b.WriteRune(r)
							}
						}
						ctx.Println(b.String())
						continue
					}
					fields := strings.Split(line, delim)
					var picked []string
					for i, f := range fields {
						if ranges.contains(i + 1) {
							picked = append(picked, f)
						}
					}
					ctx.Println(strings.Join(picked, delim))
				}
			}
			return nil
		},
	}
}

// rangeList is a parsed cut-style selection like 1,3-5.
type rangeList [][2]int

func (rl rangeList) contains(n int) bool {
	for _, r := range rl {
		if r[0] <= n && n <= r[1] {
			return true
		}
	}
	return false
}

func parseRangeList(list string) (rangeList, error) {
	var rl rangeList
	for _, part := range strings.Split(list, ",") {
		lo, hi := part, part
		if i := strings.IndexByte(part, '-'); i >= 0 {
			lo, hi = part[:i], part[i+1:]
		}
		nlo, err := strconv.Atoi(lo)
		if err != nil {
			return nil, oserr.Newf(oserr.InvalidInput, "cut: bad list %q", list)
		}
		nhi := nlo
		if hi != lo {
			if nhi, err = strconv.Atoi(hi); err != nil {
				return nil, oserr.Newf(oserr.InvalidInput, "cut: bad list %q", list)
			}
		}
		rl = append(rl, [2]int{nlo, nhi})
	}
	return rl, nil
}

func sedCmd() *eval.Command {
	return &eval.Command{
		Name:        "sed",
		Description: "apply an s/// substitution to each line",
		Usage:       "'s/pattern/replacement/[g]' [file...]",
		Args:        eval.MinArgs(1),
		Completion:  eval.CompletePaths,
		InputStream: true,
		StreamFrom:  1,
		Run: func(ctx *eval.Context) error {
			re, repl, global, err := parseSubst(ctx.Args[0])
			if err != nil {
				return err
			}
			for _, item := range ctx.Items {
				for _, line := range splitLines(item.Content) {
					if global {
						ctx.Println(re.ReplaceAllString(line, repl))
					} else {
						ctx.Println(replaceFirst(re, line, repl))
					}
				}
			}
			return nil
		},
	}
}

// parseSubst parses s<delim>pattern<delim>replacement<delim>[flags]. Any
// delimiter character works.
func parseSubst(expr string) (*regexp.Regexp, string, bool, error) {
	if len(expr) < 2 || expr[0] != 's' {
		return nil, "", false, oserr.Newf(oserr.InvalidInput, "sed: unsupported expression %q", expr)
	}
	delim := string(expr[1])
	parts := strings.Split(expr[2:], delim)
	if len(parts) < 2 || len(parts) > 3 {
		return nil, "", false, oserr.Newf(oserr.InvalidInput, "sed: malformed expression %q", expr)
	}
	re, err := regexp.Compile(parts[0])
	if err != nil {
		return nil, "", false, oserr.Newf(oserr.InvalidInput, "sed: bad pattern: %v", err)
	}
	global := len(parts) == 3 && strings.Contains(parts[2], "g")
	return re, parts[1], global, nil
}

func replaceFirst(re *regexp.Regexp, line, repl string) string {
	done := false
	return re.ReplaceAllStringFunc(line, func(m string) string {
		if done {
			return m
		}
		done = true
		return repl
	})
}

func uniqCmd() *eval.Command {
	return &eval.Command{
		Name:        "uniq",
		Description: "filter adjacent duplicate lines",
		Usage:       "[-cdu] [file...]",
		Flags: []eval.FlagDef{
			{Long: "count", Short: "c", Help: "prefix lines with their repeat count"},
			{Long: "repeated", Short: "d", Help: "print only repeated lines"},
			{Long: "unique", Short: "u", Help: "print only non-repeated lines"},
		},
		Args:        eval.AnyArgs,
		Completion:  eval.CompletePaths,
		InputStream: true,
		Run: func(ctx *eval.Context) error {
			var all []string
			for _, item := range ctx.Items {
				all = append(all, splitLines(item.Content)...)
			}
			emit := func(line string, count int) {
				switch {
				case ctx.Bool("repeated") && count < 2:
				case ctx.Bool("unique") && count > 1:
				case ctx.Bool("count"):
					ctx.Printf("%7d %s\n", count, line)
				default:
					ctx.Println(line)
				}
			}
			for i := 0; i < len(all); {
				j := i
				for j < len(all) && all[j] == all[i] {
					j++
				}
				emit(all[i], j-i)
				i = j
			}
			return nil
		},
	}
}

func grepCmd() *eval.Command {
	return &eval.Command{
		Name:        "grep",
		Description: "print lines matching a pattern",
		Usage:       "[-ivcn] pattern [file...]",
		Flags: []eval.FlagDef{
			{Long: "ignore-case", Short: "i", Help: "case-insensitive match"},
			{Long: "invert-match", Short: "v", Help: "select non-matching lines"},
			{Long: "count", Short: "c", Help: "print only a match count"},
			{Long: "line-number", Short: "n", Help: "prefix matches with line numbers"},
		},
		Args:        eval.MinArgs(1),
		Completion:  eval.CompletePaths,
		InputStream: true,
		StreamFrom:  1,
		Run: func(ctx *eval.Context) error {
			pattern := ctx.Args[0]
			if ctx.Bool("ignore-case") {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return oserr.Newf(oserr.InvalidInput, "grep: bad pattern: %v", err)
			}
			invert := ctx.Bool("invert-match")
			multi := len(ctx.Items) > 1
			for _, item := range ctx.Items {
				count := 0
				for i, line := range splitLines(item.Content) {
					if re.MatchString(line) == invert {
						continue
					}
					count++
					if ctx.Bool("count") {
						continue
					}
					var b strings.Builder
					if multi {
						fmt.Fprintf(&b, "%s:", item.Path)
					}
					if ctx.Bool("line-number") {
						fmt.Fprintf(&b, "%d:", i+1)
					}
					b.WriteString(line)
					ctx.Println(b.String())
				}
				if ctx.Bool("count") {
					if multi {
						ctx.Printf("%s:%d\n", item.Path, count)
					} else {
						ctx.Printf("%d\n", count)
					}
				}
			}
			return nil
		},
	}
}

func diffCmd() *eval.Command {
	return &eval.Command{
		Name:        "diff",
		Description: "compare two files line by line",
		Usage:       "file1 file2",
		Args:        eval.ExactArgs(2),
		Completion:  eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			a, err := s.FS.ReadFile(ctx.Args[0], s.Pwd(), ctx.User())
			if err != nil {
				return err
			}
			b, err := s.FS.ReadFile(ctx.Args[1], s.Pwd(), ctx.User())
			if err != nil {
				return err
			}
			for _, line := range diffLines(splitLines(a), splitLines(b)) {
				ctx.Println(line)
			}
			return nil
		},
	}
}

// diffLines produces an ed-flavored diff: deletions as "< line", additions
// as "> line", in order, derived from a longest-common-subsequence walk.
func diffLines(a, b []string) []string {
	// lcs[i][j] is the LCS length of a[i:] and b[j:].
	lcs := make([][]int, len(a)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}
	var out []string
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			out = append(out, "< "+a[i])
			i++
		default:
			out = append(out, "> "+b[j])
			j++
		}
	}
	for ; i < len(a); i++ {
		out = append(out, "< "+a[i])
	}
	for ; j < len(b); j++ {
		out = append(out, "> "+b[j])
	}
	return out
}

func csplitCmd() *eval.Command {
	return &eval.Command{
		Name:        "csplit",
		Description: "split a file into pieces at given line numbers",
		Usage:       "file line...",
		Args:        eval.MinArgs(2),
		Completion:  eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			content, err := s.FS.ReadFile(ctx.Args[0], s.Pwd(), ctx.User())
			if err != nil {
				return err
			}
			lines := splitLines(content)
			prev := 0
			var pieces [][]string
			for _, arg := range ctx.Args[1:] {
				n, err := strconv.Atoi(arg)
				if err != nil || n < 1 || n-1 < prev || n-1 > len(lines) {
					return oserr.Newf(oserr.InvalidInput, "csplit: bad line number %q", arg)
				}
				pieces = append(pieces, lines[prev:n-1])
				prev = n - 1
			}
			pieces = append(pieces, lines[prev:])
			for i, piece := range pieces {
				name := fmt.Sprintf("xx%02d", i)
				body := ""
				if len(piece) > 0 {
					body = strings.Join(piece, "\n") + "\n"
				}
				if err := s.FS.WriteFile(name, s.Pwd(), ctx.User(), body); err != nil {
					return err
				}
				ctx.Println(strconv.Itoa(len(body)))
			}
			ctx.MarkStateModified()
			return nil
		},
	}
}

func echoCmd() *eval.Command {
	return &eval.Command{
		Name:        "echo",
		Description: "print arguments",
		Usage:       "[-n] [text...]",
		RawFlags:    true,
		Args:        eval.AnyArgs,
		Run: func(ctx *eval.Context) error {
			args := ctx.Args
			suppress := false
			if len(args) > 0 && args[0] == "-n" {
				suppress = true
				args = args[1:]
			}
			text := strings.Join(args, " ")
			if suppress {
				ctx.Print(text)
				ctx.SuppressNewline()
			} else {
				ctx.Println(text)
			}
			return nil
		},
	}
}

func wcCmd() *eval.Command {
	return &eval.Command{
		Name:        "wc",
		Description: "count lines, words and bytes",
		Usage:       "[-lwc] [file...]",
		Flags: []eval.FlagDef{
			{Long: "lines", Short: "l", Help: "count lines"},
			{Long: "words", Short: "w", Help: "count words"},
			{Long: "bytes", Short: "c", Help: "count bytes"},
		},
		Args:        eval.AnyArgs,
		Completion:  eval.CompletePaths,
		InputStream: true,
		Run: func(ctx *eval.Context) error {
			wantLines, wantWords, wantBytes := ctx.Bool("lines"), ctx.Bool("words"), ctx.Bool("bytes")
			if !wantLines && !wantWords && !wantBytes {
				wantLines, wantWords, wantBytes = true, true, true
			}
			totalL, totalW, totalB := 0, 0, 0
			row := func(l, w, b int, label string) {
				var cols []string
				if wantLines {
					cols = append(cols, strconv.Itoa(l))
				}
				if wantWords {
					cols = append(cols, strconv.Itoa(w))
				}
				if wantBytes {
					cols = append(cols, strconv.Itoa(b))
				}
				if label != "" {
					cols = append(cols, label)
				}
				ctx.Println(strings.Join(cols, " "))
			}
			for _, item := range ctx.Items {
				l := strings.Count(item.Content, "\n")
				w := len(strings.Fields(item.Content))
				b := len(item.Content)
				totalL, totalW, totalB = totalL+l, totalW+w, totalB+b
				row(l, w, b, item.Path)
			}
			if len(ctx.Items) > 1 {
				row(totalL, totalW, totalB, "total")
			}
			return nil
		},
	}
}
