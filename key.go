package reqcache

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Param is a single query parameter.
type Param struct {
	Name  string
	Value string
}

// Request describes an outbound request.
type Request struct {
	Method string
	URL    string

	// Query is an ordered list of query parameters, order is not significant for keying.
	Query []Param

	// Body is any JSON-marshalable value, nil for absent body.
	Body interface{}
}

// QueryFromValues converts url.Values to a list of parameters.
func QueryFromValues(values url.Values) []Param {
	params := make([]Param, 0, len(values))

	for name, vals := range values {
		for _, v := range vals {
			params = append(params, Param{Name: name, Value: v})
		}
	}

	return params
}

// Values converts query parameters to url.Values.
func (r *Request) Values() url.Values {
	values := make(url.Values, len(r.Query))

	for _, p := range r.Query {
		values.Add(p.Name, p.Value)
	}

	return values
}

// Key delimiter is escaped in method, URL and query, body is the last part of key.
var (
	keyEscaper   = strings.NewReplacer("%", "%25", "_", "%5F")
	queryEscaper = strings.NewReplacer("_", "%5F") // url.QueryEscape already escapes "%".
)

// BuildKey derives a canonical key from request.
//
// Keys are insensitive to the order of query parameters and to the order of object keys
// at any depth of body, array order is preserved.
func BuildKey(req *Request) string {
	var b strings.Builder

	b.WriteString(keyEscaper.Replace(req.Method))
	b.WriteByte('_')
	b.WriteString(keyEscaper.Replace(req.URL))
	b.WriteByte('_')
	b.WriteString(canonicalQuery(req.Query))
	b.WriteByte('_')
	b.WriteString(canonicalBody(req.Body))

	return b.String()
}

func canonicalQuery(query []Param) string {
	if len(query) == 0 {
		return ""
	}

	sorted := make([]Param, len(query))
	copy(sorted, query)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}

		return sorted[i].Value < sorted[j].Value
	})

	parts := make([]string, 0, len(sorted))
	for _, p := range sorted {
		parts = append(parts, queryEscaper.Replace(url.QueryEscape(p.Name))+"="+queryEscaper.Replace(url.QueryEscape(p.Value)))
	}

	return strings.Join(parts, "&")
}

func canonicalBody(body interface{}) string {
	v, err := normalize(body)
	if err != nil {
		return fmt.Sprintf("%v", body)
	}

	if v == nil {
		return "{}"
	}

	b := bytes.Buffer{}
	writeCanonical(&b, v)

	return b.String()
}

// normalize converts arbitrary value to a tree of objects, arrays and scalars.
func normalize(body interface{}) (interface{}, error) {
	if body == nil {
		return nil, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	return v, nil
}

func writeCanonical(b *bytes.Buffer, v interface{}) {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		b.WriteByte('{')

		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}

			writeScalar(b, k)
			b.WriteByte(':')
			writeCanonical(b, t[k])
		}

		b.WriteByte('}')
	case []interface{}:
		b.WriteByte('[')

		for i, item := range t {
			if i > 0 {
				b.WriteByte(',')
			}

			writeCanonical(b, item)
		}

		b.WriteByte(']')
	default:
		writeScalar(b, t)
	}
}

func writeScalar(b *bytes.Buffer, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		_, _ = fmt.Fprintf(b, "%v", v)

		return
	}

	b.Write(data)
}
