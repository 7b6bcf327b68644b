package loader

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// xmlElement captures any element with its attributes and nested elements.
type xmlElement struct {
	XMLName  xml.Name
	Attrs    []xml.Attr   `xml:",any,attr"`
	Elements []xmlElement `xml:",any"`
}

func (e xmlElement) attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

const (
	xmlTreeTag       = "BehaviorTree"
	xmlBlackboardTag = "Blackboard"
)

// LoadXML decodes the markup form where the element name is the node type,
// attributes are properties and nesting gives the children:
//
//	<BehaviorTree name="main">
//	  <Blackboard someVariable="123"/>
//	  <Sequence name="root">
//	    <LogMessage text="hello"/>
//	  </Sequence>
//	</BehaviorTree>
//
// A document whose root element is a node is accepted as well. Node
// attributes stay strings; bt.Properties converts them on access. Blackboard
// attributes are read as booleans or numbers when they look like one, since
// leaves compare them directly.
func LoadXML(r io.Reader) (*Definition, error) {
	var doc xmlElement
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}

	d := &Definition{}
	if doc.XMLName.Local != xmlTreeTag {
		d.Root = xmlNode(doc)
		if err := d.Validate(); err != nil {
			return nil, err
		}
		return d, nil
	}

	d.Name, _ = doc.attr("name")
	d.Description, _ = doc.attr("description")
	var nodes []xmlElement
	for _, el := range doc.Elements {
		if el.XMLName.Local == xmlBlackboardTag {
			if d.Blackboard == nil {
				d.Blackboard = make(map[string]any)
			}
			for _, a := range el.Attrs {
				d.Blackboard[a.Name.Local] = xmlScalar(a.Value)
			}
			continue
		}
		nodes = append(nodes, el)
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("%w: <%s> needs exactly one root node, found %d", ErrInvalidDefinition, xmlTreeTag, len(nodes))
	}
	d.Root = xmlNode(nodes[0])
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// xmlScalar turns "true"/"false" into bool and numeric text into float64,
// matching what the JSON and HCL decoders produce.
func xmlScalar(v string) any {
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return v
}

func xmlNode(el xmlElement) *NodeSpec {
	spec := &NodeSpec{Type: strings.TrimSpace(el.XMLName.Local)}
	for _, a := range el.Attrs {
		if a.Name.Local == "name" {
			spec.Name = a.Value
			continue
		}
		if spec.Properties == nil {
			spec.Properties = make(map[string]any, len(el.Attrs))
		}
		spec.Properties[a.Name.Local] = a.Value
	}
	for _, child := range el.Elements {
		spec.Children = append(spec.Children, xmlNode(child))
	}
	return spec
}
