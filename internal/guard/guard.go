// Package guard компилирует поля IR и их правила в guard-клаузы: упорядоченный
// список условий, объединенных через &&, и запись об ошибке, которая
// добавляется в коллекцию, когда все условия истинны.
//
// Для каждого поля порядок клауз фиксирован:
//
//	[required?, primitive-type?, custom-type?, rule1, rule2, ..., ruleN]
//
// Правила идут в порядке объявления в IR. Пакет не выполняет валидацию и
// не пишет файлов: результат - данные (Clause), которые затем рендерятся
// в Ruby (Clause.Fragment) или интерпретируются (пакет dryrun).
package guard

import (
	"sorbet-validators/internal/expr"
	"sorbet-validators/internal/ir"
	"sorbet-validators/internal/names"
)

// ErrorsVar - имя локальной коллекции ошибок внутри сгенерированного валидатора.
const ErrorsVar = "validator_internal_errors"

// ElementVar - имя переменной блока при поэлементной проверке массива.
const ElementVar = "x"

// Коды ошибок ruleless клауз (до нормализации в CONSTANT_CASE).
const (
	codeRequired = "required"
	codeType     = "type"
)

// ClauseKind - происхождение клаузы.
type ClauseKind int

const (
	ClauseRequired ClauseKind = iota
	ClausePrimitiveType
	ClauseCustomType
	ClauseRule
)

func (k ClauseKind) String() string {
	switch k {
	case ClauseRequired:
		return "required"
	case ClausePrimitiveType:
		return "primitive-type"
	case ClauseCustomType:
		return "custom-type"
	case ClauseRule:
		return "rule"
	}
	return "unknown"
}

// Options управляет тем, какие клаузы генерируются.
type Options struct {
	// RuntimeChecks включает клаузы required и primitive-type, а также
	// проверки на nil перед делегированием. При false генератор доверяет
	// статической типизации Sorbet.
	RuntimeChecks bool
}

// Delegation - вызов валидатора другого типа или перечисления по имени.
// Ошибки вызванного валидатора добавляются в текущую коллекцию.
type Delegation struct {
	Validator string
	// Guard - условие вызова; nil означает безусловный вызов
	Guard expr.Node
	// Target - значение, передаваемое в валидатор, или массив при Each
	Target expr.Node
	// Each - вызывать валидатор для каждого элемента массива
	Each bool
	// SafeNav - итерировать через "&.each", пропуская отсутствующий массив
	SafeNav bool
}

// Clause - одна guard-клауза.
type Clause struct {
	Kind ClauseKind
	// Rule заполнен для Kind == ClauseRule
	Rule    ir.RuleKind
	Field   string
	Comment string

	// Conditions и Error заполнены для всех клауз, кроме ClauseCustomType
	Conditions []expr.Node
	Error      *ErrorRecord

	// Delegate заполнен только для ClauseCustomType
	Delegate *Delegation
}

// Compiler строит клаузы для полей одного сервиса.
type Compiler struct {
	names *names.Resolver
	opts  Options
}

// New создает Compiler.
func New(resolver *names.Resolver, opts Options) *Compiler {
	return &Compiler{names: resolver, opts: opts}
}

// Options возвращает настройки компилятора.
func (c *Compiler) Options() Options { return c.opts }

// FieldClauses возвращает все клаузы поля в фиксированном порядке.
//
// Параметры:
//   - owner: исходное имя типа-владельца; пустая строка для параметров метода
//   - f: поле IR
//
// Сначала идут ruleless клаузы (required, primitive-type, custom-type), затем
// по одной клаузе на каждое правило поля в порядке объявления. Правила поля
// локального типа или перечисления не компилируются: его проверяет вызываемый
// валидатор.
func (c *Compiler) FieldClauses(owner string, f ir.Field) []Clause {
	clauses := c.RulelessClauses(owner, f)
	if f.IsLocal() {
		return clauses
	}
	for _, r := range f.Rules {
		if clause, ok := c.RuleClause(owner, f, r); ok {
			clauses = append(clauses, clause)
		}
	}
	return clauses
}

// Access - выражение чтения значения поля: "search" для параметра метода,
// "gizmo.created_at" для свойства типа.
func Access(owner string, f ir.Field) expr.Node {
	if owner == "" {
		return expr.Var{Name: names.Snake(f.Name)}
	}
	return expr.Attr{Recv: names.Snake(owner), Name: names.Snake(f.Name), Key: f.Name}
}

// Path - путь поля в записи об ошибке.
func Path(owner string, f ir.Field) string {
	return names.Join(owner, f.Name)
}

// Predicate строит условия нарушения для одного значения. element сообщает,
// что значение - элемент массива (переменная блока).
type Predicate func(v expr.Node, element bool) []expr.Node

// BuildConditions строит полный список условий клаузы с учетом массива.
//
// Для скаляра это predicate(v). Для массива - два условия: значение является
// массивом, и хотя бы один элемент нарушает ограничение:
//
//	v.is_a?(Array) && v.any? { |x| <predicate(x)> }
//
// Функция чистая и не зависит от настроек компилятора.
func BuildConditions(v expr.Node, isArray bool, predicate Predicate) []expr.Node {
	if !isArray {
		return predicate(v, false)
	}
	return []expr.Node{
		expr.IsA{X: v, Class: names.ClassArray},
		expr.Any{X: v, Var: ElementVar, Cond: expr.All(predicate(expr.Var{Name: ElementVar}, true)...)},
	}
}

// must оборачивает значение в T.must для необязательного поля. Переменная
// блока и обязательные поля не оборачиваются; skip отключает обертку совсем.
func must(f ir.Field, v expr.Node, element, skip bool) expr.Node {
	if element || skip || f.IsRequired {
		return v
	}
	return expr.Must{X: v}
}

// itemTitle добавляет "Each item in" для поэлементных проверок массива.
func itemTitle(f ir.Field, title string) string {
	if f.IsArray {
		return "Each item in " + title
	}
	return title
}
