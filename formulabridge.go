package xlcore

import (
	"fmt"

	"github.com/jramos57/xlcore/formula"
)

// sheetResolver adapts a Sheet to formula.Resolver, translating between the
// public CellReference/CellValue types and the formula package's
// self-contained CellRef/Value types.
type sheetResolver struct {
	sheet *Sheet
}

func (r sheetResolver) Cell(ref formula.CellRef) (formula.Value, bool) {
	cv := r.sheet.Cell(CellReference{Col: ref.Col, Row: ref.Row})
	return cellValueToFormulaValue(cv)
}

func cellValueToFormulaValue(cv CellValue) (formula.Value, bool) {
	switch cv.Kind {
	case ValueEmpty:
		return formula.Value{}, true
	case ValueText:
		return formula.NewString(cv.Text), false
	case ValueRichText:
		return formula.NewString(cv.Rich.PlainText()), false
	case ValueNumber:
		return formula.NewNumber(cv.Num), false
	case ValueBoolean:
		return formula.NewBoolean(cv.Bool), false
	case ValueDate:
		return formula.NewNumber(cv.Num), false
	case ValueError:
		return formula.NewError(cv.Err), false
	default:
		return formula.Value{}, true
	}
}

// EvaluateFormula parses and evaluates a formula string against this
// sheet's current snapshot, bridging the formula subsystem to the object
// model.
func (s *Sheet) EvaluateFormula(text string) (CellValue, error) {
	node, err := formula.Parse(text)
	if err != nil {
		return CellValue{}, err
	}
	v := formula.Eval(node, sheetResolver{sheet: s})
	return formulaValueToCellValue(v), nil
}

func formulaValueToCellValue(v formula.Value) CellValue {
	switch v.Kind {
	case formula.KindNumber:
		f, _ := v.AsDouble()
		return CellValue{Kind: ValueNumber, Num: f}
	case formula.KindBoolean:
		b, _ := v.AsBoolean()
		return CellValue{Kind: ValueBoolean, Bool: b}
	case formula.KindError:
		return CellValue{Kind: ValueError, Err: v.AsString()}
	default:
		return CellValue{Kind: ValueText, Text: v.AsString()}
	}
}

// FormulaDependencyGraph builds a formula.Graph over every formula cell in
// every sheet of the workbook, keyed "SheetName!A1" so cells from different
// sheets never collide, and wires each formula's parsed references as
// dependency edges.
func (w *Workbook) FormulaDependencyGraph() (*formula.Graph, error) {
	g := formula.NewGraph()
	for _, si := range w.Sheets() {
		sh, err := w.Sheet(si.Name)
		if err != nil {
			return nil, err
		}
		for _, row := range sh.Rows() {
			for _, cell := range row.Cells {
				if !cell.HasForm {
					continue
				}
				node, err := formula.Parse(cell.Formula)
				if err != nil {
					continue
				}
				key := fmt.Sprintf("%s!%s", si.Name, cell.Ref.String())
				refs := make([]string, 0, len(formula.References(node)))
				for _, r := range formula.References(node) {
					refs = append(refs, fmt.Sprintf("%s!%s", si.Name, r))
				}
				g.AddFormula(key, refs)
			}
		}
	}
	return g, nil
}
