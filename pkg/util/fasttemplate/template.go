/*
 *	The MIT License (MIT)
 *
 *	Copyright (c) 2015 Aliaksandr Valialkin
 *  Modifications Copyright (c) 2019-2020 by Nedim Sabic
 *
 *	Permission is hereby granted, free of charge, to any person obtaining a copy
 *	of this software and associated documentation files (the "Software"), to deal
 *	in the Software without restriction, including without limitation the rights
 *  to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *	copies of the Software, and to permit persons to whom the Software is
 */

package fasttemplate

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/valyala/bytebufferpool"
)

// Template substitutes the tags delimited by the start and end tags. The
// template is parsed once into alternating text and tag segments and can be
// executed by concurrent goroutines.
type Template struct {
	texts []string
	tags  []string
	pool  bytebufferpool.Pool
}

// TagFunc writes the value of the tag to w and returns the number of bytes written.
type TagFunc func(w io.Writer, tag string) (int, error)

// NewTemplate parses the template with the given tag delimiters.
func NewTemplate(template, startTag, endTag string) (*Template, error) {
	if startTag == "" {
		return nil, errors.New("start tag cannot be empty")
	}
	if endTag == "" {
		return nil, errors.New("end tag cannot be empty")
	}
	n := strings.Count(template, startTag)
	t := &Template{
		texts: make([]string, 0, n+1),
		tags:  make([]string, 0, n),
	}
	s := template
	for {
		i := strings.Index(s, startTag)
		if i < 0 {
			t.texts = append(t.texts, s)
			return t, nil
		}
		t.texts = append(t.texts, s[:i])
		s = s[i+len(startTag):]
		j := strings.Index(s, endTag)
		if j < 0 {
			return nil, fmt.Errorf("cannot find end tag=%q in the template=%q starting from %q", endTag, template, s)
		}
		t.tags = append(t.tags, s[:j])
		s = s[j+len(endTag):]
	}
}

// Tags returns the tag names in the order they appear in the template.
func (t *Template) Tags() []string { return t.tags }

// ExecuteFunc writes the template to w calling f for each tag occurrence.
// It returns the number of bytes written.
func (t *Template) ExecuteFunc(w io.Writer, f TagFunc) (int64, error) {
	var nn int64
	for i, text := range t.texts {
		n, err := io.WriteString(w, text)
		nn += int64(n)
		if err != nil {
			return nn, err
		}
		if i == len(t.tags) {
			break
		}
		n, err = f(w, t.tags[i])
		nn += int64(n)
		if err != nil {
			return nn, err
		}
	}
	return nn, nil
}

// ExecuteFuncString renders the template into the pooled buffer and returns
// a copy of the result. The output is empty if any tag function fails.
func (t *Template) ExecuteFuncString(f TagFunc) []byte {
	bb := t.pool.Get()
	defer t.pool.Put(bb)
	if _, err := t.ExecuteFunc(bb, f); err != nil {
		return []byte{}
	}
	b := make([]byte, bb.Len())
	copy(b, bb.B)
	return b
}
