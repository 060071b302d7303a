package ipp

func stringValues(vs []string) []interface{} {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// Integer builds an integer attribute.
func Integer(name string, vs ...int32) Attribute {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return Attribute{Name: name, Tag: TagInteger, Values: out}
}

// Ranges builds a rangeOfInteger attribute, one value per range.
func Ranges(name string, rs ...RangeOfInteger) Attribute {
	out := make([]interface{}, len(rs))
	for i, r := range rs {
		out[i] = r
	}
	return Attribute{Name: name, Tag: TagRangeOfInteger, Values: out}
}

// Keyword builds a keyword attribute.
func Keyword(name string, vs ...string) Attribute {
	return Attribute{Name: name, Tag: TagKeyword, Values: stringValues(vs)}
}

// Name builds a nameWithoutLanguage attribute.
func Name(name string, vs ...string) Attribute {
	return Attribute{Name: name, Tag: TagName, Values: stringValues(vs)}
}

// URI builds a uri attribute.
func URI(name string, vs ...string) Attribute {
	return Attribute{Name: name, Tag: TagURI, Values: stringValues(vs)}
}

func Charset(name string, vs ...string) Attribute {
	return Attribute{Name: name, Tag: TagCharset, Values: stringValues(vs)}
}

func NaturalLanguage(name string, vs ...string) Attribute {
	return Attribute{Name: name, Tag: TagNaturalLanguage, Values: stringValues(vs)}
}

func MimeMediaType(name string, vs ...string) Attribute {
	return Attribute{Name: name, Tag: TagMimeMediaType, Values: stringValues(vs)}
}

// StringValue returns the first value of a when it is a string.
func (a Attribute) StringValue() (string, bool) {
	if len(a.Values) == 0 {
		return "", false
	}
	s, ok := a.Values[0].(string)
	return s, ok
}
