/*
Copyright © 2025 the iconkit authors.
This file is part of iconkit.

iconkit is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

iconkit is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with iconkit.  If not, see <http://www.gnu.org/licenses/>.
*/

package iconkit

import (
	"fmt"
	"math"
	"strings"

	"github.com/Knetic/govaluate"
)

func unaryFunc(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("iconkit: got %d arguments for function '%s', but needs 1", len(arg), name)
		}
		v, ok := arg[0].(float64)
		if !ok {
			return nil, fmt.Errorf("iconkit: argument of '%s' is %T, not a number", name, arg[0])
		}
		return f(v), nil
	}
}

// ExpressionFunctions are the functions available in derived
// variable expressions.
var ExpressionFunctions = map[string]govaluate.ExpressionFunction{
	"exp":  unaryFunc("exp", math.Exp),
	"sqrt": unaryFunc("sqrt", math.Sqrt),
	"abs":  unaryFunc("abs", math.Abs),
	"log":  unaryFunc("log", math.Log),
}

// parseExpression parses expression, which may reference variables
// whose names contain characters such as '.' by enclosing
// them in braces, e.g. "{SYNMSG_BT_CL_IR10.8} - 273.15".
// Brackets are padded so govaluate tokenizes operators next to them.
func parseExpression(expression string) (*govaluate.EvaluableExpression, error) {
	e := strings.NewReplacer("{", " [", "}", "] ").Replace(expression)
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(e, ExpressionFunctions)
	if err != nil {
		return nil, fmt.Errorf("iconkit: parsing expression '%s': %v", expression, err)
	}
	return expr, nil
}

// ExpressionVars returns the unique variable names used in expression.
func ExpressionVars(expression string) ([]string, error) {
	expr, err := parseExpression(expression)
	if err != nil {
		return nil, err
	}
	var o []string
	seen := make(map[string]bool)
	for _, v := range expr.Vars() {
		if !seen[v] {
			seen[v] = true
			o = append(o, v)
		}
	}
	return o, nil
}

// Evaluate computes a new field named name by evaluating expression
// for every cell of the input fields, which must all have the same shape.
// The dimensions and coordinates of the result are those of the first
// input variable.
func Evaluate(name, expression, units string, inputs map[string]*Field) (*Field, error) {
	expr, err := parseExpression(expression)
	if err != nil {
		return nil, err
	}
	vars, err := ExpressionVars(expression)
	if err != nil {
		return nil, err
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("iconkit: expression '%s' for %s uses no variables", expression, name)
	}
	var tmpl *Field
	for _, v := range vars {
		f, ok := inputs[v]
		if !ok {
			return nil, fmt.Errorf("iconkit: expression for %s needs undefined variable '%s'", name, v)
		}
		if tmpl == nil {
			tmpl = f
			continue
		}
		if !sameShape(tmpl.Data.Shape, f.Data.Shape) {
			return nil, fmt.Errorf("iconkit: expression for %s: %s has shape %v but %s has %v",
				name, tmpl.Name, tmpl.Data.Shape, f.Name, f.Data.Shape)
		}
	}

	o := tmpl.Clone()
	o.Name = name
	o.Units = units
	o.Attributes = map[string]interface{}{"long_name": expression}
	params := make(map[string]interface{}, len(vars))
	for i := range o.Data.Elements {
		for _, v := range vars {
			params[v] = inputs[v].Data.Elements[i]
		}
		r, err := expr.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("iconkit: evaluating %s: %v", name, err)
		}
		switch x := r.(type) {
		case float64:
			o.Data.Elements[i] = x
		case bool:
			if x {
				o.Data.Elements[i] = 1
			} else {
				o.Data.Elements[i] = 0
			}
		default:
			return nil, fmt.Errorf("iconkit: expression for %s evaluates to %T, not a number", name, r)
		}
	}
	return o, nil
}

// Derive reads the variables used by expression from ds, selecting the
// first time step, and evaluates it into a new field.
func Derive(ds *Dataset, name, expression, units string) (*Field, error) {
	vars, err := ExpressionVars(expression)
	if err != nil {
		return nil, err
	}
	inputs := make(map[string]*Field, len(vars))
	for _, v := range vars {
		f, err := ds.ReadFirstStep(v)
		if err != nil {
			return nil, err
		}
		inputs[v] = f
	}
	return Evaluate(name, expression, units, inputs)
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
