// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package javasrc

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// declKinds maps tree-sitter declaration node types to DeclKind.
var declKinds = map[string]DeclKind{
	"class_declaration":           KindClass,
	"interface_declaration":       KindInterface,
	"enum_declaration":            KindEnum,
	"record_declaration":          KindRecord,
	"annotation_type_declaration": KindAnnotationType,
}

// declKeywords are the tokens that introduce a declaration after its
// modifiers.
var declKeywords = map[string]bool{
	"class":      true,
	"interface":  true,
	"enum":       true,
	"record":     true,
	"@interface": true,
	"@":          true,
}

// builder converts a tree-sitter concrete syntax tree into a
// CompilationUnit. It is single-use.
type builder struct {
	src  []byte
	unit *CompilationUnit
}

func newBuilder(src []byte, path string) *builder {
	return &builder{
		src: src,
		unit: &CompilationUnit{
			Path:   path,
			Source: src,
		},
	}
}

func isComment(n *sitter.Node) bool {
	switch n.Type() {
	case "line_comment", "block_comment", "comment":
		return true
	}
	return false
}

func spanOf(n *sitter.Node) Span {
	return Span{Start: int(n.StartByte()), End: int(n.EndByte())}
}

func lineOf(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func (b *builder) text(n *sitter.Node) string {
	return n.Content(b.src)
}

// compactName strips whitespace from a dotted name, e.g. "a . b" -> "a.b".
func compactName(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// build fills the unit from the program node.
func (b *builder) build(root *sitter.Node) *CompilationUnit {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			b.unit.Package = b.packageName(child)
		case "import_declaration":
			b.unit.Imports = append(b.unit.Imports, b.importDecl(child))
		default:
			if _, ok := declKinds[child.Type()]; ok {
				b.unit.Types = append(b.unit.Types, b.typeDecl(child, nil))
			}
		}
	}
	b.unit.origImports = append([]*ImportDecl(nil), b.unit.Imports...)
	return b.unit
}

func (b *builder) packageName(n *sitter.Node) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "identifier", "scoped_identifier":
			return compactName(b.text(child))
		}
	}
	return ""
}

func (b *builder) importDecl(n *sitter.Node) *ImportDecl {
	imp := &ImportDecl{Span: spanOf(n)}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "static":
			imp.Static = true
		case "identifier", "scoped_identifier":
			imp.Name = compactName(b.text(child))
		case "asterisk", "*":
			imp.OnDemand = true
		}
	}
	return imp
}

// typeDecl converts a declaration node and, recursively, every declaration
// nested in its body.
func (b *builder) typeDecl(n *sitter.Node, parent *TypeDecl) *TypeDecl {
	d := &TypeDecl{
		Kind:   declKinds[n.Type()],
		Parent: parent,
		Span:   spanOf(n),
		Line:   lineOf(n),
	}
	if name := n.ChildByFieldName("name"); name != nil {
		d.Name = b.text(name)
	}
	if parent != nil {
		d.BinaryName = parent.BinaryName + "$" + d.Name
	} else if b.unit.Package != "" {
		d.BinaryName = b.unit.Package + "." + d.Name
	} else {
		d.BinaryName = d.Name
	}

	body := n.ChildByFieldName("body")
	keywordSeen := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if isComment(child) {
			continue
		}
		if body != nil && child.StartByte() == body.StartByte() && child.Type() == body.Type() {
			break
		}
		switch {
		case child.Type() == "modifiers":
			d.Modifiers = b.modifiers(child)
		case !keywordSeen && declKeywords[child.Type()]:
			keywordSeen = true
			d.KeywordStart = int(child.StartByte())
			d.Line = lineOf(child)
		case child.Type() == "permits":
			d.PermitsSpan = spanOf(child)
			d.Permits = b.permits(child, d)
		}
		d.HeaderEnd = int(child.EndByte())
	}
	d.origModifiers = append([]Modifier(nil), d.Modifiers...)
	d.origPermits = append([]*TypeRef(nil), d.Permits...)

	if body != nil {
		b.collectMembers(body, d)
	}
	return d
}

// collectMembers finds declarations anywhere below n, including local
// classes inside method bodies, and attaches them to d.
func (b *builder) collectMembers(n *sitter.Node, d *TypeDecl) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if _, ok := declKinds[child.Type()]; ok {
			d.Members = append(d.Members, b.typeDecl(child, d))
			continue
		}
		b.collectMembers(child, d)
	}
}

func (b *builder) modifiers(n *sitter.Node) []Modifier {
	var mods []Modifier
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if isComment(child) {
			continue
		}
		switch child.Type() {
		case "marker_annotation", "annotation":
			mods = append(mods, b.annotation(child))
		default:
			mods = append(mods, &Keyword{Text: b.text(child), Span: spanOf(child)})
		}
	}
	return mods
}

func (b *builder) annotation(n *sitter.Node) *Annotation {
	a := &Annotation{Span: spanOf(n), Line: lineOf(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		a.Name = compactName(b.text(name))
	}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return a
	}
	a.HasArguments = true
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		if isComment(child) {
			continue
		}
		if child.Type() == "element_value_pair" {
			pair := ElementPair{}
			if key := child.ChildByFieldName("key"); key != nil {
				pair.Key = b.text(key)
			}
			if value := child.ChildByFieldName("value"); value != nil {
				pair.Value = b.elementValue(value)
			}
			a.Pairs = append(a.Pairs, pair)
			continue
		}
		a.Value = b.elementValue(child)
	}
	return a
}

func (b *builder) elementValue(n *sitter.Node) ElementValue {
	switch n.Type() {
	case "class_literal":
		lit := &ClassLiteral{Span: spanOf(n)}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if isComment(child) {
				continue
			}
			lit.Type = b.typeRef(child)
			lit.Type.owner = lit
			break
		}
		return lit
	case "element_value_array_initializer":
		arr := &ArrayValue{Span: spanOf(n)}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if isComment(child) {
				continue
			}
			arr.Elements = append(arr.Elements, b.elementValue(child))
		}
		return arr
	default:
		return &OtherValue{Kind: n.Type(), Text: b.text(n), Span: spanOf(n)}
	}
}

func (b *builder) permits(n *sitter.Node, owner *TypeDecl) []*TypeRef {
	var refs []*TypeRef
	var visit func(*sitter.Node)
	visit = func(node *sitter.Node) {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch {
			case isComment(child):
			case child.Type() == "type_list":
				visit(child)
			default:
				ref := b.typeRef(child)
				ref.owner = owner
				refs = append(refs, ref)
			}
		}
	}
	visit(n)
	return refs
}

// typeRef converts a type node. Unknown node kinds degrade to a single
// segment holding the compacted source text.
func (b *builder) typeRef(n *sitter.Node) *TypeRef {
	var ref *TypeRef
	switch n.Type() {
	case "type_identifier", "identifier", "integral_type", "floating_point_type",
		"boolean_type", "void_type":
		ref = &TypeRef{Segments: []TypeSegment{{Name: b.text(n)}}}

	case "scoped_type_identifier":
		ref = &TypeRef{}
		var last *sitter.Node
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			switch child.Type() {
			case "type_identifier", "scoped_type_identifier", "generic_type", "identifier":
				if last != nil {
					ref.Segments = append(ref.Segments, b.typeRef(last).Segments...)
				}
				last = child
			}
		}
		if last != nil {
			if last.Type() == "type_identifier" || last.Type() == "identifier" {
				ref.Segments = append(ref.Segments, TypeSegment{Name: b.text(last)})
			} else {
				ref.Segments = append(ref.Segments, b.typeRef(last).Segments...)
			}
		}

	case "scoped_identifier":
		ref = &TypeRef{}
		for _, part := range strings.Split(compactName(b.text(n)), ".") {
			ref.Segments = append(ref.Segments, TypeSegment{Name: part})
		}

	case "generic_type":
		ref = &TypeRef{}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			switch child.Type() {
			case "type_arguments":
				if len(ref.Segments) == 0 {
					continue
				}
				lastSeg := &ref.Segments[len(ref.Segments)-1]
				for j := 0; j < int(child.NamedChildCount()); j++ {
					argNode := child.NamedChild(j)
					if isComment(argNode) {
						continue
					}
					arg := b.typeRef(argNode)
					arg.owner = ref
					lastSeg.Args = append(lastSeg.Args, arg)
				}
			default:
				if !isComment(child) {
					ref.Segments = append(ref.Segments, b.typeRef(child).Segments...)
				}
			}
		}

	case "array_type":
		elem := n.ChildByFieldName("element")
		if elem == nil {
			elem = n.NamedChild(0)
		}
		ref = b.typeRef(elem)
		if dims := n.ChildByFieldName("dimensions"); dims != nil {
			ref.Dims += strings.Count(b.text(dims), "[")
		}

	default:
		ref = &TypeRef{Segments: []TypeSegment{{Name: compactName(b.text(n))}}}
	}
	ref.Span = spanOf(n)
	return ref
}
