// Package subject holds the fixed registry of exam subjects and resolves
// free-form subject strings (filename codes, metadata codes, URL segments)
// to their canonical identifier.
package subject

import (
	"golang.org/x/text/cases"
)

// Canonical is one of the five fixed exam-subject identifiers. It is the
// primary key for pools, progress counters and wrong notes.
type Canonical string

const (
	SWDesign            Canonical = "sw_design"
	SWEngineering       Canonical = "sw_engineering"
	DBEngineering       Canonical = "db_engineering"
	ISManagement        Canonical = "is_management"
	LanguageApplication Canonical = "language_application"
)

// Meta describes a canonical subject.
type Meta struct {
	Slug    Canonical `json:"slug" yaml:"slug"`
	Name    string    `json:"name" yaml:"name"`
	Aliases []string  `json:"aliases" yaml:"aliases"`
}

var registry = []Meta{
	{
		Slug:    SWDesign,
		Name:    "소프트웨어 설계",
		Aliases: []string{"SW_DESIGN", "sw_design"},
	},
	{
		Slug:    SWEngineering,
		Name:    "소프트웨어 개발",
		Aliases: []string{"SW_ENGINEERING", "SW_DEV", "sw_engineering", "sw_dev"},
	},
	{
		Slug:    DBEngineering,
		Name:    "데이터베이스 구축",
		Aliases: []string{"DB_ENGINEERING", "DB_BUILD", "db_engineering", "db_build"},
	},
	{
		Slug:    ISManagement,
		Name:    "정보시스템 구축관리",
		Aliases: []string{"IS_MANAGEMENT", "IS_MGMT", "is_management", "is_mgmt"},
	},
	{
		Slug:    LanguageApplication,
		Name:    "프로그래밍 언어 활용",
		Aliases: []string{"LANGUAGE_APPLICATION", "PL_USE", "language_application", "pl_use"},
	},
}

var (
	bySlug  = make(map[Canonical]Meta, len(registry))
	byAlias = make(map[string]Canonical)
)

func init() {
	for _, m := range registry {
		bySlug[m.Slug] = m
		byAlias[fold(string(m.Slug))] = m.Slug
		for _, alias := range m.Aliases {
			byAlias[fold(alias)] = m.Slug
		}
	}
}

// fold applies Unicode case folding. A Caser carries state, so each call
// gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Canonicalize resolves a free-form string to its canonical subject.
// Matching is case-insensitive against the alias table. The boolean is
// false for empty or unknown input; callers treat that as a normal outcome.
func Canonicalize(input string) (Canonical, bool) {
	if input == "" {
		return "", false
	}
	c, ok := byAlias[fold(input)]
	return c, ok
}

// Lookup returns the registry entry for a canonical subject.
func Lookup(c Canonical) (Meta, bool) {
	m, ok := bySlug[c]
	return m, ok
}

// All returns the registry in display order. The returned slice is a copy.
func All() []Meta {
	out := make([]Meta, len(registry))
	for i, m := range registry {
		m.Aliases = append([]string(nil), m.Aliases...)
		out[i] = m
	}
	return out
}

// Valid reports whether c is one of the registered subjects.
func (c Canonical) Valid() bool {
	_, ok := bySlug[c]
	return ok
}

// DisplayName returns the human-readable subject name, or the raw value
// when c is not registered.
func (c Canonical) DisplayName() string {
	if m, ok := bySlug[c]; ok {
		return m.Name
	}
	return string(c)
}
