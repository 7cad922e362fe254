package analysis

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/seanschneidewent/Maestro-Super-sub001/internal/geometry"
)

// coerceResult turns the provider's raw payload into a Result. Missing or
// mistyped fields are defaulted, never errored: data hygiene is this
// function's contract, not error suppression.
func coerceResult(raw []byte, width, height float64) *Result {
	res := &Result{
		Regions:         []Region{},
		SheetReflection: coerceString(gjson.GetBytes(raw, "sheet_reflection"), ""),
		PageType:        coerceString(gjson.GetBytes(raw, "page_type"), "unknown"),
		CrossReferences: []string{},
	}

	if refs := gjson.GetBytes(raw, "cross_references"); refs.IsArray() {
		refs.ForEach(func(_, v gjson.Result) bool {
			if v.Type == gjson.String && v.String() != "" {
				res.CrossReferences = append(res.CrossReferences, v.String())
			}
			return true
		})
	}

	regions := gjson.GetBytes(raw, "regions")
	if !regions.IsArray() {
		return res
	}
	n := 0
	regions.ForEach(func(_, r gjson.Result) bool {
		n++
		res.Regions = append(res.Regions, coerceRegion(r, n, width, height))
		return true
	})
	return res
}

func coerceRegion(r gjson.Result, ordinal int, width, height float64) Region {
	reg := Region{
		Type:  strings.ToLower(r.Get("type").String()),
		Label: r.Get("label").String(),
	}

	reg.ID = r.Get("id").String()
	if reg.ID == "" {
		reg.ID = fmt.Sprintf("region_%03d", ordinal)
	}

	if box, ok := geometry.FromValue(r.Get("bbox"), width, height); ok {
		reg.Box = box
	}

	reg.Confidence = r.Get("confidence").Float()
	if reg.Confidence < 0 || reg.Confidence > 1 {
		reg.Confidence = 0
	}

	if dn := r.Get("detail_number"); dn.Exists() {
		reg.DetailNumber = dn.String()
	}
	return reg
}

func coerceString(v gjson.Result, fallback string) string {
	if v.Type == gjson.String && v.String() != "" {
		return v.String()
	}
	return fallback
}
