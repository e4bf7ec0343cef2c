// Package layout рендерит дерево фрагментов кода в текст с отступами.
// Глубина отступа передается явным параметром при рендеринге.
package layout

import "strings"

// Unit - один уровень отступа.
const Unit = "  "

// Fragment - узел дерева, который умеет разложиться в строки на заданной глубине.
type Fragment interface {
	Lines(depth int) []string
}

// Line - одна строка. Пробелы по краям отбрасываются, пустая строка остается пустой.
type Line string

func (l Line) Lines(depth int) []string {
	s := strings.TrimSpace(string(l))
	if s == "" {
		return []string{""}
	}
	return []string{strings.Repeat(Unit, depth) + s}
}

// Blank - пустая строка.
var Blank Fragment = Line("")

// Group - последовательность фрагментов на одной глубине.
type Group []Fragment

func (g Group) Lines(depth int) []string {
	var out []string
	for _, f := range g {
		if f == nil {
			continue
		}
		out = append(out, f.Lines(depth)...)
	}
	return out
}

// Lines собирает Group из строк.
func Lines(lines ...string) Group {
	g := make(Group, len(lines))
	for i, l := range lines {
		g[i] = Line(l)
	}
	return g
}

type indented struct {
	body Group
}

func (i indented) Lines(depth int) []string {
	return i.body.Lines(depth + 1)
}

// Indent сдвигает фрагменты на один уровень вглубь.
func Indent(body ...Fragment) Fragment {
	return indented{body: body}
}

// Block - "header", тело с отступом и закрывающий "end".
func Block(header string, body ...Fragment) Fragment {
	return Group{Line(header), Indent(body...), Line("end")}
}

// Render раскладывает фрагменты с нулевой глубины и соединяет строки через "\n".
func Render(fragments ...Fragment) string {
	return strings.Join(Group(fragments).Lines(0), "\n")
}
