package loader

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

var hclFileSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "name"},
		{Name: "description"},
		{Name: "blackboard"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "node", LabelNames: []string{"type"}},
	},
}

var hclNodeSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "name"},
		{Name: "properties"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "node", LabelNames: []string{"type"}},
	},
}

// LoadHCL decodes a definition written as nested node blocks:
//
//	name = "guard"
//	blackboard = { hp = 100 }
//
//	node "Selector" {
//	  name = "root"
//	  node "Check" { properties = { expr = "hp < 30" } }
//	  node "Wait"  { properties = { duration = "1s" } }
//	}
func LoadHCL(src []byte, filename string) (*Definition, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diags
	}
	content, diags := file.Body.Content(hclFileSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	d := &Definition{}
	if err := hclString(content.Attributes["name"], &d.Name); err != nil {
		return nil, err
	}
	if err := hclString(content.Attributes["description"], &d.Description); err != nil {
		return nil, err
	}
	if attr, ok := content.Attributes["blackboard"]; ok {
		v, err := hclValue(attr)
		if err != nil {
			return nil, err
		}
		m, isMap := v.(map[string]any)
		if !isMap {
			return nil, hclError(attr.Range, "blackboard must be an object")
		}
		d.Blackboard = m
	}

	if len(content.Blocks) != 1 {
		return nil, hclError(file.Body.MissingItemRange(), fmt.Sprintf("expected exactly one root node block, found %d", len(content.Blocks)))
	}
	root, err := hclNode(content.Blocks[0])
	if err != nil {
		return nil, err
	}
	d.Root = root

	if err = d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func hclNode(block *hcl.Block) (*NodeSpec, error) {
	content, diags := block.Body.Content(hclNodeSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	spec := &NodeSpec{Type: block.Labels[0]}
	if err := hclString(content.Attributes["name"], &spec.Name); err != nil {
		return nil, err
	}
	if attr, ok := content.Attributes["properties"]; ok {
		v, err := hclValue(attr)
		if err != nil {
			return nil, err
		}
		m, isMap := v.(map[string]any)
		if !isMap {
			return nil, hclError(attr.Range, "properties must be an object")
		}
		spec.Properties = m
	}
	for _, child := range content.Blocks {
		ch, err := hclNode(child)
		if err != nil {
			return nil, err
		}
		spec.Children = append(spec.Children, ch)
	}
	return spec, nil
}

func hclString(attr *hcl.Attribute, dst *string) error {
	if attr == nil {
		return nil
	}
	v, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return diags
	}
	if err := gocty.FromCtyValue(v, dst); err != nil {
		return hclError(attr.Range, fmt.Sprintf("%s: %v", attr.Name, err))
	}
	return nil
}

// hclValue evaluates a constant expression into plain Go values by way of its
// JSON form: objects become map[string]any and numbers float64.
func hclValue(attr *hcl.Attribute) (any, error) {
	v, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, hclError(attr.Range, attr.Name+" must be a constant")
	}
	data, err := ctyjson.SimpleJSONValue{Value: v}.MarshalJSON()
	if err != nil {
		return nil, hclError(attr.Range, err.Error())
	}
	var out any
	if err = json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func hclError(rng hcl.Range, detail string) error {
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Invalid behavior tree definition",
		Detail:   detail,
		Subject:  rng.Ptr(),
	}}
}
