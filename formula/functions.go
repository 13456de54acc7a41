package formula

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// evalFunction dispatches a case-insensitive function name (already
// upper-cased by the lexer) to its implementation; an unknown name returns
// error(NAME).
func evalFunction(n FunctionCallNode, resolver Resolver) Value {
	fn, ok := functionTable[n.Name]
	if !ok {
		return errorValue("NAME")
	}
	return fn(n.Args, resolver)
}

type fnImpl func(args []Node, r Resolver) Value

var functionTable map[string]fnImpl

func init() {
	functionTable = map[string]fnImpl{
		"SUM":           fnSum,
		"AVERAGE":       fnAverage,
		"MIN":           fnMin,
		"MAX":           fnMax,
		"MEDIAN":        fnMedian,
		"COUNT":         fnCount,
		"COUNTA":        fnCounta,
		"IF":            fnIf,
		"IFERROR":       fnIfError,
		"AND":           fnAnd,
		"OR":            fnOr,
		"NOT":           fnNot,
		"LEN":           fnLen,
		"UPPER":         fnUpper,
		"LOWER":         fnLower,
		"CONCAT":        fnConcat,
		"CONCATENATE":   fnConcat,
		"ROUND":         fnRound,
		"ABS":           fnAbs,
		"INT":           fnInt,
		"MOD":           fnMod,
		"SQRT":          fnSqrt,
		"TODAY":         fnToday,
		"NOW":           fnNow,
		"DATE":          fnDate,
		"YEAR":          fnYear,
		"MONTH":         fnMonth,
		"DAY":           fnDay,
		"LEFT":          fnLeft,
		"RIGHT":         fnRight,
		"MID":           fnMid,
		"TRIM":          fnTrim,
		"SUMIF":         fnSumif,
		"COUNTIF":       fnCountif,
		"SUMIFS":        fnSumifs,
		"COUNTIFS":      fnCountifs,
		"AVERAGEIF":     fnAverageif,
		"VLOOKUP":       fnVlookup,
		"INDEX":         fnIndex,
		"MATCH":         fnMatch,
		"FIND":          fnFind,
		"SEARCH":        fnSearch,
		"SUBSTITUTE":    fnSubstitute,
		"TEXT":          fnText,
		"ISBLANK":       fnIsBlank,
		"ISNUMBER":      fnIsNumber,
		"ISTEXT":        fnIsText,
		"ISERROR":       fnIsError,
	}
}

// --- argument helpers ---

func asRangeRef(n Node) (RangeRef, bool) {
	switch t := n.(type) {
	case RangeNode:
		return normalizedRange(t.Start, t.End), true
	case CellRefNode:
		return RangeRef{MinRow: t.Ref.Row, MaxRow: t.Ref.Row, MinCol: t.Ref.Col, MaxCol: t.Ref.Col}, true
	default:
		return RangeRef{}, false
	}
}

// flatArgValues evaluates a list of argument nodes into a flat Value list,
// expanding ranges into their non-blank members in row-major order
// (SUM/AVERAGE/etc. accept a mix of scalars and ranges).
func flatArgValues(args []Node, r Resolver) []Value {
	var out []Value
	for _, a := range args {
		if rng, ok := asRangeRef(a); ok {
			out = append(out, rangeValues(r, rng)...)
			continue
		}
		out = append(out, Eval(a, r))
	}
	return out
}

func numericArgs(args []Node, r Resolver) ([]float64, *Value) {
	var nums []float64
	for _, v := range flatArgValues(args, r) {
		if v.Kind == KindError {
			e := v
			return nil, &e
		}
		if f, ok := v.AsDouble(); ok {
			nums = append(nums, f)
		}
	}
	return nums, nil
}

// --- aggregation ---

func fnSum(args []Node, r Resolver) Value {
	nums, errv := numericArgs(args, r)
	if errv != nil {
		return *errv
	}
	total := 0.0
	for _, f := range nums {
		total += f
	}
	return numberValue(total)
}

func fnAverage(args []Node, r Resolver) Value {
	nums, errv := numericArgs(args, r)
	if errv != nil {
		return *errv
	}
	if len(nums) == 0 {
		return errorValue("DIV/0")
	}
	total := 0.0
	for _, f := range nums {
		total += f
	}
	return numberValue(total / float64(len(nums)))
}

func fnMin(args []Node, r Resolver) Value {
	nums, errv := numericArgs(args, r)
	if errv != nil {
		return *errv
	}
	if len(nums) == 0 {
		return numberValue(0)
	}
	m := nums[0]
	for _, f := range nums[1:] {
		if f < m {
			m = f
		}
	}
	return numberValue(m)
}

func fnMax(args []Node, r Resolver) Value {
	nums, errv := numericArgs(args, r)
	if errv != nil {
		return *errv
	}
	if len(nums) == 0 {
		return numberValue(0)
	}
	m := nums[0]
	for _, f := range nums[1:] {
		if f > m {
			m = f
		}
	}
	return numberValue(m)
}

func fnMedian(args []Node, r Resolver) Value {
	nums, errv := numericArgs(args, r)
	if errv != nil {
		return *errv
	}
	if len(nums) == 0 {
		return errorValue("NUM")
	}
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return numberValue(sorted[mid])
	}
	return numberValue((sorted[mid-1] + sorted[mid]) / 2)
}

func fnCount(args []Node, r Resolver) Value {
	n := 0
	for _, v := range flatArgValues(args, r) {
		if v.Kind == KindNumber {
			n++
		}
	}
	return numberValue(float64(n))
}

func fnCounta(args []Node, r Resolver) Value {
	n := 0
	for _, v := range flatArgValues(args, r) {
		if v.Kind != KindError {
			n++
		}
	}
	return numberValue(float64(n))
}

// --- logical ---

func fnIf(args []Node, r Resolver) Value {
	if len(args) < 2 || len(args) > 3 {
		return errorValue("VALUE")
	}
	cond := Eval(args[0], r)
	if cond.Kind == KindError {
		return cond
	}
	b, ok := cond.AsBoolean()
	if !ok {
		return errorValue("VALUE")
	}
	if b {
		return Eval(args[1], r)
	}
	if len(args) == 3 {
		return Eval(args[2], r)
	}
	return booleanValue(false)
}

func fnIfError(args []Node, r Resolver) Value {
	if len(args) != 2 {
		return errorValue("VALUE")
	}
	v := Eval(args[0], r)
	if v.Kind == KindError {
		return Eval(args[1], r)
	}
	return v
}

func fnAnd(args []Node, r Resolver) Value {
	result := true
	for _, v := range flatArgValues(args, r) {
		if v.Kind == KindError {
			return v
		}
		b, ok := v.AsBoolean()
		if !ok {
			return errorValue("VALUE")
		}
		result = result && b
	}
	return booleanValue(result)
}

func fnOr(args []Node, r Resolver) Value {
	result := false
	for _, v := range flatArgValues(args, r) {
		if v.Kind == KindError {
			return v
		}
		b, ok := v.AsBoolean()
		if !ok {
			return errorValue("VALUE")
		}
		result = result || b
	}
	return booleanValue(result)
}

func fnNot(args []Node, r Resolver) Value {
	if len(args) != 1 {
		return errorValue("VALUE")
	}
	v := Eval(args[0], r)
	if v.Kind == KindError {
		return v
	}
	b, ok := v.AsBoolean()
	if !ok {
		return errorValue("VALUE")
	}
	return booleanValue(!b)
}

// --- text ---

func fnLen(args []Node, r Resolver) Value {
	if len(args) != 1 {
		return errorValue("VALUE")
	}
	v := Eval(args[0], r)
	if v.Kind == KindError {
		return v
	}
	return numberValue(float64(len(v.AsString())))
}

func fnUpper(args []Node, r Resolver) Value {
	if len(args) != 1 {
		return errorValue("VALUE")
	}
	v := Eval(args[0], r)
	if v.Kind == KindError {
		return v
	}
	return stringValue(strings.ToUpper(v.AsString()))
}

func fnLower(args []Node, r Resolver) Value {
	if len(args) != 1 {
		return errorValue("VALUE")
	}
	v := Eval(args[0], r)
	if v.Kind == KindError {
		return v
	}
	return stringValue(strings.ToLower(v.AsString()))
}

func fnConcat(args []Node, r Resolver) Value {
	var b strings.Builder
	for _, v := range flatArgValues(args, r) {
		if v.Kind == KindError {
			return v
		}
		b.WriteString(v.AsString())
	}
	return stringValue(b.String())
}

func fnTrim(args []Node, r Resolver) Value {
	if len(args) != 1 {
		return errorValue("VALUE")
	}
	v := Eval(args[0], r)
	if v.Kind == KindError {
		return v
	}
	fields := strings.Fields(v.AsString())
	return stringValue(strings.Join(fields, " "))
}

func fnLeft(args []Node, r Resolver) Value {
	return sideSubstr(args, r, true)
}

func fnRight(args []Node, r Resolver) Value {
	return sideSubstr(args, r, false)
}

func sideSubstr(args []Node, r Resolver, fromLeft bool) Value {
	if len(args) < 1 || len(args) > 2 {
		return errorValue("VALUE")
	}
	s := Eval(args[0], r)
	if s.Kind == KindError {
		return s
	}
	n := 1
	if len(args) == 2 {
		nv := Eval(args[1], r)
		if nv.Kind == KindError {
			return nv
		}
		f, ok := nv.AsDouble()
		if !ok {
			return errorValue("VALUE")
		}
		n = int(f)
	}
	str := s.AsString()
	if n < 0 {
		n = 0
	}
	if n > len(str) {
		n = len(str)
	}
	if fromLeft {
		return stringValue(str[:n])
	}
	return stringValue(str[len(str)-n:])
}

func fnMid(args []Node, r Resolver) Value {
	if len(args) != 3 {
		return errorValue("VALUE")
	}
	s := Eval(args[0], r)
	startV := Eval(args[1], r)
	lenV := Eval(args[2], r)
	if s.Kind == KindError {
		return s
	}
	if startV.Kind == KindError {
		return startV
	}
	if lenV.Kind == KindError {
		return lenV
	}
	startF, ok1 := startV.AsDouble()
	lenF, ok2 := lenV.AsDouble()
	if !ok1 || !ok2 {
		return errorValue("VALUE")
	}
	str := s.AsString()
	start := int(startF) - 1
	length := int(lenF)
	if start < 0 || length < 0 {
		return errorValue("VALUE")
	}
	if start >= len(str) {
		return stringValue("")
	}
	end := start + length
	if end > len(str) {
		end = len(str)
	}
	return stringValue(str[start:end])
}

func fnFind(args []Node, r Resolver) Value {
	return findImpl(args, r, true)
}

func fnSearch(args []Node, r Resolver) Value {
	return findImpl(args, r, false)
}

func findImpl(args []Node, r Resolver, caseSensitive bool) Value {
	if len(args) < 2 || len(args) > 3 {
		return errorValue("VALUE")
	}
	needle := Eval(args[0], r)
	haystack := Eval(args[1], r)
	if needle.Kind == KindError {
		return needle
	}
	if haystack.Kind == KindError {
		return haystack
	}
	start := 1
	if len(args) == 3 {
		sv := Eval(args[2], r)
		if sv.Kind == KindError {
			return sv
		}
		f, ok := sv.AsDouble()
		if !ok {
			return errorValue("VALUE")
		}
		start = int(f)
	}
	hs := haystack.AsString()
	if start < 1 || start > len(hs)+1 {
		return errorValue("VALUE")
	}
	sub := hs[start-1:]
	var idx int
	if caseSensitive {
		idx = strings.Index(sub, needle.AsString())
	} else if strings.ContainsAny(needle.AsString(), "*?") {
		re := globToSearchPattern(needle.AsString())
		loc := re.FindStringIndex(sub)
		if loc == nil {
			idx = -1
		} else {
			idx = loc[0]
		}
	} else {
		idx = strings.Index(strings.ToLower(sub), strings.ToLower(needle.AsString()))
	}
	if idx < 0 {
		return errorValue("VALUE")
	}
	return numberValue(float64(start + idx))
}

func fnSubstitute(args []Node, r Resolver) Value {
	if len(args) < 3 || len(args) > 4 {
		return errorValue("VALUE")
	}
	textV := Eval(args[0], r)
	oldV := Eval(args[1], r)
	newV := Eval(args[2], r)
	for _, v := range []Value{textV, oldV, newV} {
		if v.Kind == KindError {
			return v
		}
	}
	text, old, replacement := textV.AsString(), oldV.AsString(), newV.AsString()
	if len(args) == 3 {
		return stringValue(strings.ReplaceAll(text, old, replacement))
	}
	instV := Eval(args[3], r)
	if instV.Kind == KindError {
		return instV
	}
	instF, ok := instV.AsDouble()
	if !ok {
		return errorValue("VALUE")
	}
	instance := int(instF)
	if old == "" || instance < 1 {
		return stringValue(text)
	}
	count := 0
	idx := 0
	for {
		i := strings.Index(text[idx:], old)
		if i < 0 {
			return stringValue(text)
		}
		pos := idx + i
		count++
		if count == instance {
			return stringValue(text[:pos] + replacement + text[pos+len(old):])
		}
		idx = pos + len(old)
	}
}

func fnText(args []Node, r Resolver) Value {
	if len(args) != 2 {
		return errorValue("VALUE")
	}
	v := Eval(args[0], r)
	fv := Eval(args[1], r)
	if v.Kind == KindError {
		return v
	}
	if fv.Kind == KindError {
		return fv
	}
	return stringValue(formatText(v, fv.AsString()))
}

func formatText(v Value, format string) string {
	num, isNum := v.AsDouble()
	lower := strings.ToLower(format)
	switch {
	case strings.Contains(lower, "yyyy") || strings.Contains(lower, "mm") || strings.Contains(lower, "dd"):
		if !isNum {
			return v.AsString()
		}
		y, m, d := civilFromSerial(num)
		out := format
		out = strings.ReplaceAll(out, "yyyy", strconv.Itoa(y))
		out = strings.ReplaceAll(out, "yy", strconv.Itoa(y%100))
		out = strings.ReplaceAll(out, "mm", pad2(m))
		out = strings.ReplaceAll(out, "m", strconv.Itoa(m))
		out = strings.ReplaceAll(out, "dd", pad2(d))
		out = strings.ReplaceAll(out, "d", strconv.Itoa(d))
		return out
	case strings.Contains(format, "%"):
		if !isNum {
			return v.AsString()
		}
		return strconv.FormatFloat(num*100, 'f', 2, 64) + "%"
	case strings.Contains(format, "$"):
		if !isNum {
			return v.AsString()
		}
		return "$" + strconv.FormatFloat(num, 'f', 2, 64)
	case strings.Contains(format, "#,##0"):
		if !isNum {
			return v.AsString()
		}
		return groupThousands(num)
	case strings.Contains(format, ".00"):
		if !isNum {
			return v.AsString()
		}
		return strconv.FormatFloat(num, 'f', 2, 64)
	case format == "0":
		if !isNum {
			return v.AsString()
		}
		return strconv.FormatFloat(num, 'f', 0, 64)
	default:
		return v.AsString()
	}
}

func pad2(n int) string {
	s := strconv.Itoa(n)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

func groupThousands(f float64) string {
	neg := f < 0
	if neg {
		f = -f
	}
	whole := int64(f)
	s := strconv.FormatInt(whole, 10)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}

// --- numeric ---

func fnRound(args []Node, r Resolver) Value {
	if len(args) < 1 || len(args) > 2 {
		return errorValue("VALUE")
	}
	v := Eval(args[0], r)
	if v.Kind == KindError {
		return v
	}
	f, ok := v.AsDouble()
	if !ok {
		return errorValue("VALUE")
	}
	digits := 0
	if len(args) == 2 {
		dv := Eval(args[1], r)
		if dv.Kind == KindError {
			return dv
		}
		df, ok := dv.AsDouble()
		if !ok {
			return errorValue("VALUE")
		}
		digits = int(df)
	}
	scale := math.Pow(10, float64(digits))
	rounded := math.Round(f*scale) / scale
	return numberValue(rounded)
}

func fnAbs(args []Node, r Resolver) Value {
	if len(args) != 1 {
		return errorValue("VALUE")
	}
	v := Eval(args[0], r)
	if v.Kind == KindError {
		return v
	}
	f, ok := v.AsDouble()
	if !ok {
		return errorValue("VALUE")
	}
	return numberValue(math.Abs(f))
}

func fnInt(args []Node, r Resolver) Value {
	if len(args) != 1 {
		return errorValue("VALUE")
	}
	v := Eval(args[0], r)
	if v.Kind == KindError {
		return v
	}
	f, ok := v.AsDouble()
	if !ok {
		return errorValue("VALUE")
	}
	return numberValue(math.Floor(f))
}

func fnMod(args []Node, r Resolver) Value {
	if len(args) != 2 {
		return errorValue("VALUE")
	}
	nv := Eval(args[0], r)
	dv := Eval(args[1], r)
	if nv.Kind == KindError {
		return nv
	}
	if dv.Kind == KindError {
		return dv
	}
	n, ok1 := nv.AsDouble()
	d, ok2 := dv.AsDouble()
	if !ok1 || !ok2 {
		return errorValue("VALUE")
	}
	if d == 0 {
		return errorValue("DIV/0")
	}
	m := math.Mod(n, d)
	if m != 0 && (m < 0) != (d < 0) {
		m += d
	}
	return numberValue(m)
}

func fnSqrt(args []Node, r Resolver) Value {
	if len(args) != 1 {
		return errorValue("VALUE")
	}
	v := Eval(args[0], r)
	if v.Kind == KindError {
		return v
	}
	f, ok := v.AsDouble()
	if !ok {
		return errorValue("VALUE")
	}
	if f < 0 {
		return errorValue("NUM")
	}
	return numberValue(math.Sqrt(f))
}

// --- date/time ---

func fnToday(args []Node, r Resolver) Value {
	now := defaultClock()
	return numberValue(serialFromDate(now.Year(), int(now.Month()), now.Day()))
}

func fnNow(args []Node, r Resolver) Value {
	now := defaultClock()
	whole := serialFromDate(now.Year(), int(now.Month()), now.Day())
	frac := (float64(now.Hour())*3600 + float64(now.Minute())*60 + float64(now.Second())) / 86400
	return numberValue(whole + frac)
}

func fnDate(args []Node, r Resolver) Value {
	if len(args) != 3 {
		return errorValue("VALUE")
	}
	nums, errv := numericArgs(args, r)
	if errv != nil {
		return *errv
	}
	if len(nums) != 3 {
		return errorValue("VALUE")
	}
	y, m, d := normalizeDateArgs(int(nums[0]), int(nums[1]), int(nums[2]))
	return numberValue(serialFromDate(y, m, d))
}

func fnYear(args []Node, r Resolver) Value {
	return dateComponent(args, r, func(y, m, d int) int { return y })
}

func fnMonth(args []Node, r Resolver) Value {
	return dateComponent(args, r, func(y, m, d int) int { return m })
}

func fnDay(args []Node, r Resolver) Value {
	return dateComponent(args, r, func(y, m, d int) int { return d })
}

func dateComponent(args []Node, r Resolver, pick func(y, m, d int) int) Value {
	if len(args) != 1 {
		return errorValue("VALUE")
	}
	v := Eval(args[0], r)
	if v.Kind == KindError {
		return v
	}
	f, ok := v.AsDouble()
	if !ok {
		return errorValue("VALUE")
	}
	y, m, d := civilFromSerial(f)
	return numberValue(float64(pick(y, m, d)))
}

// --- lookup ---

func fnVlookup(args []Node, r Resolver) Value {
	if len(args) < 3 || len(args) > 4 {
		return errorValue("VALUE")
	}
	lookupV := Eval(args[0], r)
	if lookupV.Kind == KindError {
		return lookupV
	}
	rng, ok := asRangeRef(args[1])
	if !ok {
		return errorValue("REF")
	}
	colV := Eval(args[2], r)
	if colV.Kind == KindError {
		return colV
	}
	colF, ok := colV.AsDouble()
	if !ok {
		return errorValue("VALUE")
	}
	colOffset := int(colF) - 1
	approximate := true
	if len(args) == 4 {
		av := Eval(args[3], r)
		if av.Kind == KindError {
			return av
		}
		b, ok := av.AsBoolean()
		if ok {
			approximate = b
		}
	}
	targetCol := rng.MinCol + colOffset
	if targetCol < rng.MinCol || targetCol > rng.MaxCol {
		return errorValue("REF")
	}

	if !approximate {
		for row := rng.MinRow; row <= rng.MaxRow; row++ {
			key, blank := r.Cell(CellRef{Col: rng.MinCol, Row: row})
			if blank {
				continue
			}
			if valuesEqual(key, lookupV) {
				v, blank := r.Cell(CellRef{Col: targetCol, Row: row})
				if blank {
					return numberValue(0)
				}
				return v
			}
		}
		return errorValue("N/A")
	}

	// Approximate match: table assumed ascending-sorted on the key column;
	// return the last row whose key <= lookup value.
	var best Value
	found := false
	for row := rng.MinRow; row <= rng.MaxRow; row++ {
		key, blank := r.Cell(CellRef{Col: rng.MinCol, Row: row})
		if blank {
			continue
		}
		if compareValues(key, lookupV) <= 0 {
			v, blank := r.Cell(CellRef{Col: targetCol, Row: row})
			if !blank {
				best = v
			} else {
				best = numberValue(0)
			}
			found = true
		}
	}
	if !found {
		return errorValue("N/A")
	}
	return best
}

func valuesEqual(a, b Value) bool {
	af, aok := a.AsDouble()
	bf, bok := b.AsDouble()
	if aok && bok {
		return af == bf
	}
	return strings.EqualFold(a.AsString(), b.AsString())
}

func compareValues(a, b Value) int {
	af, aok := a.AsDouble()
	bf, bok := b.AsDouble()
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := a.AsString(), b.AsString()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func fnIndex(args []Node, r Resolver) Value {
	if len(args) < 2 || len(args) > 3 {
		return errorValue("VALUE")
	}
	rng, ok := asRangeRef(args[0])
	if !ok {
		return errorValue("REF")
	}
	rowV := Eval(args[1], r)
	if rowV.Kind == KindError {
		return rowV
	}
	rowF, ok := rowV.AsDouble()
	if !ok {
		return errorValue("VALUE")
	}
	rowOffset := int(rowF)
	colOffset := 1
	if len(args) == 3 {
		colV := Eval(args[2], r)
		if colV.Kind == KindError {
			return colV
		}
		colF, ok := colV.AsDouble()
		if !ok {
			return errorValue("VALUE")
		}
		colOffset = int(colF)
	}
	if rowOffset < 0 || colOffset < 1 {
		return errorValue("REF")
	}
	row := rng.MinRow + rowOffset
	if rowOffset == 0 {
		row = rng.MinRow
	} else {
		row = rng.MinRow + rowOffset - 1
	}
	col := rng.MinCol + colOffset - 1
	if row < rng.MinRow || row > rng.MaxRow || col < rng.MinCol || col > rng.MaxCol {
		return errorValue("REF")
	}
	v, blank := r.Cell(CellRef{Col: col, Row: row})
	if blank {
		return numberValue(0)
	}
	return v
}

func fnMatch(args []Node, r Resolver) Value {
	if len(args) < 2 || len(args) > 3 {
		return errorValue("VALUE")
	}
	lookupV := Eval(args[0], r)
	if lookupV.Kind == KindError {
		return lookupV
	}
	rng, ok := asRangeRef(args[1])
	if !ok {
		return errorValue("REF")
	}
	matchType := 1
	if len(args) == 3 {
		mv := Eval(args[2], r)
		if mv.Kind == KindError {
			return mv
		}
		mf, ok := mv.AsDouble()
		if !ok {
			return errorValue("VALUE")
		}
		matchType = int(mf)
	}
	if matchType != 0 && matchType != 1 {
		return errorValue("N/A")
	}

	var cells []CellRef
	if rng.MinRow == rng.MaxRow {
		for c := rng.MinCol; c <= rng.MaxCol; c++ {
			cells = append(cells, CellRef{Col: c, Row: rng.MinRow})
		}
	} else {
		for row := rng.MinRow; row <= rng.MaxRow; row++ {
			cells = append(cells, CellRef{Col: rng.MinCol, Row: row})
		}
	}

	if matchType == 0 {
		for i, c := range cells {
			v, blank := r.Cell(c)
			if blank {
				continue
			}
			if valuesEqual(v, lookupV) {
				return numberValue(float64(i + 1))
			}
		}
		return errorValue("N/A")
	}

	best := -1
	for i, c := range cells {
		v, blank := r.Cell(c)
		if blank {
			continue
		}
		if compareValues(v, lookupV) <= 0 {
			best = i
		}
	}
	if best < 0 {
		return errorValue("N/A")
	}
	return numberValue(float64(best + 1))
}

// --- criteria-based aggregates ---

func fnSumif(args []Node, r Resolver) Value {
	if len(args) < 2 || len(args) > 3 {
		return errorValue("VALUE")
	}
	critRng, ok := asRangeRef(args[0])
	if !ok {
		return errorValue("REF")
	}
	critV := Eval(args[1], r)
	if critV.Kind == KindError {
		return critV
	}
	crit := parseCriterion(critV.AsString())
	sumRng := critRng
	if len(args) == 3 {
		sumRng, ok = asRangeRef(args[2])
		if !ok {
			return errorValue("REF")
		}
	}
	total := 0.0
	forEachAligned(critRng, sumRng, r, func(critV, sumV Value, critBlank, sumBlank bool) {
		if critBlank || !crit.matches(critV) {
			return
		}
		if sumBlank {
			return
		}
		if f, ok := sumV.AsDouble(); ok {
			total += f
		}
	})
	return numberValue(total)
}

func fnCountif(args []Node, r Resolver) Value {
	if len(args) != 2 {
		return errorValue("VALUE")
	}
	critRng, ok := asRangeRef(args[0])
	if !ok {
		return errorValue("REF")
	}
	critV := Eval(args[1], r)
	if critV.Kind == KindError {
		return critV
	}
	crit := parseCriterion(critV.AsString())
	count := 0
	for row := critRng.MinRow; row <= critRng.MaxRow; row++ {
		for col := critRng.MinCol; col <= critRng.MaxCol; col++ {
			v, blank := r.Cell(CellRef{Col: col, Row: row})
			if blank {
				continue
			}
			if crit.matches(v) {
				count++
			}
		}
	}
	return numberValue(float64(count))
}

func fnAverageif(args []Node, r Resolver) Value {
	if len(args) < 2 || len(args) > 3 {
		return errorValue("VALUE")
	}
	critRng, ok := asRangeRef(args[0])
	if !ok {
		return errorValue("REF")
	}
	critV := Eval(args[1], r)
	if critV.Kind == KindError {
		return critV
	}
	crit := parseCriterion(critV.AsString())
	avgRng := critRng
	if len(args) == 3 {
		avgRng, ok = asRangeRef(args[2])
		if !ok {
			return errorValue("REF")
		}
	}
	total, count := 0.0, 0
	forEachAligned(critRng, avgRng, r, func(critV, avgV Value, critBlank, avgBlank bool) {
		if critBlank || !crit.matches(critV) || avgBlank {
			return
		}
		if f, ok := avgV.AsDouble(); ok {
			total += f
			count++
		}
	})
	if count == 0 {
		return errorValue("DIV/0")
	}
	return numberValue(total / float64(count))
}

func fnSumifs(args []Node, r Resolver) Value {
	if len(args) < 3 || len(args)%2 != 1 {
		return errorValue("VALUE")
	}
	sumRng, ok := asRangeRef(args[0])
	if !ok {
		return errorValue("REF")
	}
	total := 0.0
	iterateMultiCriteria(args[1:], r, sumRng, func(row, col int, ok bool) {
		if !ok {
			return
		}
		v, blank := r.Cell(CellRef{Col: col, Row: row})
		if blank {
			return
		}
		if f, ok := v.AsDouble(); ok {
			total += f
		}
	})
	return numberValue(total)
}

func fnCountifs(args []Node, r Resolver) Value {
	if len(args) < 2 || len(args)%2 != 0 {
		return errorValue("VALUE")
	}
	rng0, ok := asRangeRef(args[0])
	if !ok {
		return errorValue("REF")
	}
	count := 0
	iterateMultiCriteria(args, r, rng0, func(row, col int, ok bool) {
		if ok {
			count++
		}
	})
	return numberValue(float64(count))
}

// iterateMultiCriteria walks the shape of base and calls visit(row, col,
// matched) once per position, with row/col in base's own coordinates; each
// (range, criteria-literal) pair in criteriaArgs is checked at the same
// relative offset from its range's top-left corner. COUNTIFS passes its
// first criteria range as base; SUMIFS passes its sum range and reads the
// cell at row/col.
func iterateMultiCriteria(criteriaArgs []Node, r Resolver, base RangeRef, visit func(row, col int, matched bool)) {
	type pair struct {
		rng  RangeRef
		crit criterion
	}
	var pairs []pair
	for i := 0; i+1 < len(criteriaArgs); i += 2 {
		rng, ok := asRangeRef(criteriaArgs[i])
		if !ok {
			continue
		}
		cv := Eval(criteriaArgs[i+1], r)
		pairs = append(pairs, pair{rng: rng, crit: parseCriterion(cv.AsString())})
	}
	rows := base.MaxRow - base.MinRow
	cols := base.MaxCol - base.MinCol
	for dr := 0; dr <= rows; dr++ {
		for dc := 0; dc <= cols; dc++ {
			matched := true
			for _, p := range pairs {
				cell := CellRef{Col: p.rng.MinCol + dc, Row: p.rng.MinRow + dr}
				v, blank := r.Cell(cell)
				if blank || !p.crit.matches(v) {
					matched = false
					break
				}
			}
			visit(base.MinRow+dr, base.MinCol+dc, matched)
		}
	}
}

// forEachAligned walks two ranges of identical shape (criteria range and a
// second data range, offset independently) in lock-step by relative
// position, as the *IF* family requires when an explicit sum/average range
// is given.
func forEachAligned(a, b RangeRef, r Resolver, visit func(av, bv Value, ablank, bblank bool)) {
	rows := a.MaxRow - a.MinRow
	cols := a.MaxCol - a.MinCol
	for dr := 0; dr <= rows; dr++ {
		for dc := 0; dc <= cols; dc++ {
			av, ablank := r.Cell(CellRef{Col: a.MinCol + dc, Row: a.MinRow + dr})
			bv, bblank := r.Cell(CellRef{Col: b.MinCol + dc, Row: b.MinRow + dr})
			visit(av, bv, ablank, bblank)
		}
	}
}

// --- type predicates ---

func fnIsBlank(args []Node, r Resolver) Value {
	if len(args) != 1 {
		return errorValue("VALUE")
	}
	if ref, ok := args[0].(CellRefNode); ok {
		_, blank := r.Cell(ref.Ref)
		return booleanValue(blank)
	}
	return booleanValue(false)
}

func fnIsNumber(args []Node, r Resolver) Value {
	if len(args) != 1 {
		return errorValue("VALUE")
	}
	v := Eval(args[0], r)
	return booleanValue(v.Kind == KindNumber)
}

func fnIsText(args []Node, r Resolver) Value {
	if len(args) != 1 {
		return errorValue("VALUE")
	}
	v := Eval(args[0], r)
	return booleanValue(v.Kind == KindString)
}

func fnIsError(args []Node, r Resolver) Value {
	if len(args) != 1 {
		return errorValue("VALUE")
	}
	v := Eval(args[0], r)
	return booleanValue(v.Kind == KindError)
}
