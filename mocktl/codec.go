package mocktl

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// This file is a fixture-grade XML-RPC codec: just enough of the wire format
// to decode the method calls the client sends and to encode responses. The
// production protocol path belongs to the transport library, not to this
// package.

type methodCallXML struct {
	XMLName    xml.Name   `xml:"methodCall"`
	MethodName string     `xml:"methodName"`
	Params     []paramXML `xml:"params>param"`
}

type paramXML struct {
	Value valueXML `xml:"value"`
}

type valueXML struct {
	String  *string    `xml:"string"`
	Int     *string    `xml:"int"`
	I4      *string    `xml:"i4"`
	Boolean *string    `xml:"boolean"`
	Double  *string    `xml:"double"`
	Array   *arrayXML  `xml:"array"`
	Struct  *structXML `xml:"struct"`
	Text    string     `xml:",chardata"`
}

type arrayXML struct {
	Values []valueXML `xml:"data>value"`
}

type structXML struct {
	Members []memberXML `xml:"member"`
}

type memberXML struct {
	Name  string   `xml:"name"`
	Value valueXML `xml:"value"`
}

func decodeMethodCall(data []byte) (string, []interface{}, error) {
	var call methodCallXML
	if err := xml.Unmarshal(data, &call); err != nil {
		return "", nil, fmt.Errorf("malformed methodCall: %w", err)
	}
	params := make([]interface{}, 0, len(call.Params))
	for _, p := range call.Params {
		v, err := p.Value.toGo()
		if err != nil {
			return "", nil, err
		}
		params = append(params, v)
	}
	return call.MethodName, params, nil
}

func (v valueXML) toGo() (interface{}, error) {
	switch {
	case v.String != nil:
		return *v.String, nil
	case v.Int != nil:
		return atoiValue(*v.Int)
	case v.I4 != nil:
		return atoiValue(*v.I4)
	case v.Boolean != nil:
		// encoders vary between 0/1 and false/true
		b := strings.TrimSpace(*v.Boolean)
		return b == "1" || b == "true", nil
	case v.Double != nil:
		return strconv.ParseFloat(strings.TrimSpace(*v.Double), 64)
	case v.Array != nil:
		out := make([]interface{}, 0, len(v.Array.Values))
		for _, e := range v.Array.Values {
			ev, err := e.toGo()
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
		return out, nil
	case v.Struct != nil:
		out := make(map[string]interface{}, len(v.Struct.Members))
		for _, m := range v.Struct.Members {
			mv, err := m.Value.toGo()
			if err != nil {
				return nil, err
			}
			out[m.Name] = mv
		}
		return out, nil
	default:
		// a value with no type element is a string
		return v.Text, nil
	}
}

func atoiValue(s string) (interface{}, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("malformed int value %q", s)
	}
	return n, nil
}

func encodeMethodResponse(result interface{}) []byte {
	var sb strings.Builder
	sb.WriteString(xml.Header)
	sb.WriteString("<methodResponse><params><param>")
	writeValue(&sb, result)
	sb.WriteString("</param></params></methodResponse>")
	return []byte(sb.String())
}

func encodeFault(code int, message string) []byte {
	var sb strings.Builder
	sb.WriteString(xml.Header)
	sb.WriteString("<methodResponse><fault>")
	writeValue(&sb, map[string]interface{}{
		"faultCode":   code,
		"faultString": message,
	})
	sb.WriteString("</fault></methodResponse>")
	return []byte(sb.String())
}

func writeValue(sb *strings.Builder, value interface{}) {
	sb.WriteString("<value>")
	switch v := value.(type) {
	case nil:
		sb.WriteString("<string></string>")
	case string:
		sb.WriteString("<string>")
		writeEscaped(sb, v)
		sb.WriteString("</string>")
	case bool:
		if v {
			sb.WriteString("<boolean>1</boolean>")
		} else {
			sb.WriteString("<boolean>0</boolean>")
		}
	case int:
		sb.WriteString("<int>" + strconv.Itoa(v) + "</int>")
	case int64:
		sb.WriteString("<int>" + strconv.FormatInt(v, 10) + "</int>")
	case float64:
		sb.WriteString("<double>" + strconv.FormatFloat(v, 'f', -1, 64) + "</double>")
	case []interface{}:
		sb.WriteString("<array><data>")
		for _, e := range v {
			writeValue(sb, e)
		}
		sb.WriteString("</data></array>")
	case map[string]interface{}:
		sb.WriteString("<struct>")
		// sorted member order keeps responses deterministic for assertions
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString("<member><name>")
			writeEscaped(sb, k)
			sb.WriteString("</name>")
			writeValue(sb, v[k])
			sb.WriteString("</member>")
		}
		sb.WriteString("</struct>")
	default:
		sb.WriteString("<string>")
		writeEscaped(sb, fmt.Sprintf("%v", v))
		sb.WriteString("</string>")
	}
	sb.WriteString("</value>")
}

func writeEscaped(sb *strings.Builder, s string) {
	_ = xml.EscapeText(sb, []byte(s))
}
