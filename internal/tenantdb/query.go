package tenantdb

// Op is a comparison operator in a Cond.
type Op string

const (
	OpEq      Op = "="
	OpNeq     Op = "<>"
	OpGt      Op = ">"
	OpGte     Op = ">="
	OpLt      Op = "<"
	OpLte     Op = "<="
	OpIn      Op = "in"
	OpIsNull  Op = "is null"
	OpNotNull Op = "is not null"
)

// Cond is one predicate conjunct. A []Cond is always evaluated as the AND of
// its elements; there is no OR, which keeps the injected tenant conjunct
// impossible to disable from inside a caller predicate.
type Cond struct {
	Col string
	Op  Op
	Val any // []any for OpIn, unused for OpIsNull / OpNotNull
}

func Eq(col string, val any) Cond  { return Cond{Col: col, Op: OpEq, Val: val} }
func Neq(col string, val any) Cond { return Cond{Col: col, Op: OpNeq, Val: val} }
func Gt(col string, val any) Cond  { return Cond{Col: col, Op: OpGt, Val: val} }
func Gte(col string, val any) Cond { return Cond{Col: col, Op: OpGte, Val: val} }
func Lt(col string, val any) Cond  { return Cond{Col: col, Op: OpLt, Val: val} }
func Lte(col string, val any) Cond { return Cond{Col: col, Op: OpLte, Val: val} }

// In matches rows whose column equals any of vals.
func In(col string, vals ...any) Cond { return Cond{Col: col, Op: OpIn, Val: vals} }

func IsNull(col string) Cond  { return Cond{Col: col, Op: OpIsNull} }
func NotNull(col string) Cond { return Cond{Col: col, Op: OpNotNull} }

// Order is one ORDER BY term.
type Order struct {
	Col  string
	Desc bool
}

// Query describes a read. An empty Columns slice selects all columns.
type Query struct {
	Table   string
	Columns []string
	Where   []Cond
	OrderBy []Order
	Limit   int
}
