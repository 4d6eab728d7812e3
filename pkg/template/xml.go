package template

import (
	"encoding/json"
	"encoding/xml"
	"strings"
)

// UnmarshalXML decodes the <TEMPLATE> element of a pool response into a
// Document. Child elements with element children become vectors, the rest
// become scalars.
func (d *Document) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	d.Pairs = nil
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			pair, err := decodePair(dec, t)
			if err != nil {
				return err
			}
			d.Pairs = append(d.Pairs, pair)
		case xml.EndElement:
			return nil
		}
	}
}

func decodePair(dec *xml.Decoder, start xml.StartElement) (Pair, error) {
	key := strings.ToUpper(start.Name.Local)
	var text strings.Builder
	var vector []Pair

	for {
		tok, err := dec.Token()
		if err != nil {
			return Pair{}, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			sub, err := decodePair(dec, t)
			if err != nil {
				return Pair{}, err
			}
			vector = append(vector, sub)
		case xml.EndElement:
			if vector != nil {
				return Pair{Key: key, Value: Vector(vector)}, nil
			}
			return Pair{Key: key, Value: String(strings.TrimSpace(text.String()))}, nil
		}
	}
}

// MarshalJSON renders the document as the key/value map shape rather than
// the internal pair list.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Map())
}

// MarshalYAML renders the document as the key/value map shape for YAML
// output.
func (d Document) MarshalYAML() (any, error) {
	return d.Map(), nil
}
