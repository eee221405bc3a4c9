// Package types defines the cross-package data structures used by the ctxtree CLI.
package types

import "encoding/xml"

const (
	NodeTypeFile        = "file"
	NodeTypeDirectory   = "directory"
	NodeTypePlaceholder = "placeholder"

	CommandTree = "tree"

	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatXML  = "xml"
	FormatYAML = "yaml"

	ModeDirectory = "directory"
	ModeFiles     = "files"
)

// ValidatedPath is an absolute input path that already passed existence checks.
type ValidatedPath struct {
	AbsolutePath string
	IsDir        bool
}

// SummaryNode is the serializable form of one summarized tree node.
type SummaryNode struct {
	XMLName        xml.Name       `json:"-" xml:"node" yaml:"-"`
	Type           string         `json:"type" xml:"type,attr" yaml:"type"`
	Name           string         `json:"name" xml:"name,attr" yaml:"name"`
	Path           string         `json:"path,omitempty" xml:"path,attr,omitempty" yaml:"path,omitempty"`
	Label          string         `json:"label,omitempty" xml:"label,omitempty" yaml:"label,omitempty"`
	AggregateCount int            `json:"aggregateCount,omitempty" xml:"aggregateCount,attr,omitempty" yaml:"aggregateCount,omitempty"`
	SkippedEntries int            `json:"skippedEntries,omitempty" xml:"skippedEntries,attr,omitempty" yaml:"skippedEntries,omitempty"`
	Capped         bool           `json:"capped,omitempty" xml:"capped,attr,omitempty" yaml:"capped,omitempty"`
	Children       []*SummaryNode `json:"children,omitempty" xml:"children>node,omitempty" yaml:"children,omitempty"`
}

// SummaryLimits records the limits a summary was built with.
type SummaryLimits struct {
	MaxTotalDescendants int `json:"maxTotalDescendants" xml:"maxTotalDescendants,attr" yaml:"maxTotalDescendants"`
	MaxDirectChildren   int `json:"maxDirectChildren" xml:"maxDirectChildren,attr" yaml:"maxDirectChildren"`
}

// SummaryDocument is the complete output of the tree command.
type SummaryDocument struct {
	XMLName              xml.Name      `json:"-" xml:"summary" yaml:"-"`
	Root                 string        `json:"root" xml:"root,attr" yaml:"root"`
	Mode                 string        `json:"mode" xml:"mode,attr" yaml:"mode"`
	Limits               SummaryLimits `json:"limits" xml:"limits" yaml:"limits"`
	Entries              int           `json:"entries" xml:"entries,attr" yaml:"entries"`
	Selection            []string      `json:"selection,omitempty" xml:"selection>path,omitempty" yaml:"selection,omitempty"`
	Tree                 *SummaryNode  `json:"tree" xml:"tree>node" yaml:"tree"`
	ASCII                string        `json:"ascii" xml:"ascii" yaml:"ascii"`
	TruncatedDirectories []string      `json:"truncatedDirectories" xml:"truncatedDirectories>path" yaml:"truncatedDirectories"`
	Files                []string      `json:"files,omitempty" xml:"files>path,omitempty" yaml:"files,omitempty"`
	Tokens               int           `json:"tokens,omitempty" xml:"tokens,attr,omitempty" yaml:"tokens,omitempty"`
	Model                string        `json:"model,omitempty" xml:"model,attr,omitempty" yaml:"model,omitempty"`
}
