package inventory

import (
	"fmt"

	"github.com/breeze-rmm/swcheck/internal/registry"
)

// UninstallEntry is one product listed under an uninstall root.
type UninstallEntry struct {
	DisplayName           string
	InstallLocation       string
	UninstallCommand      string
	QuietUninstallCommand string
	DisplayVersion        string
	Publisher             string
	Root                  registry.Root
	SubkeyID              string
}

// Source records where a query was satisfied.
type Source int

const (
	SourceNotFound Source = iota
	SourceRegistry
	SourceFilesystem
)

func (s Source) String() string {
	switch s {
	case SourceRegistry:
		return "registry"
	case SourceFilesystem:
		return "filesystem"
	case SourceNotFound:
		return "not_found"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// QueryResult is the outcome of looking up one name. Build it with
// NotFound, FromRegistry or FromFilesystem so a miss never carries data.
type QueryResult struct {
	QueryName    string
	Found        bool
	MatchedEntry *UninstallEntry
	ResolvedPath string
	Source       Source
}

func NotFound(query string) QueryResult {
	return QueryResult{QueryName: query, Source: SourceNotFound}
}

// FromRegistry builds a hit for a registry entry. path may be empty when no
// directory could be derived.
func FromRegistry(query string, entry UninstallEntry, path string) QueryResult {
	e := entry
	return QueryResult{
		QueryName:    query,
		Found:        true,
		MatchedEntry: &e,
		ResolvedPath: path,
		Source:       SourceRegistry,
	}
}

func FromFilesystem(query, dir string) QueryResult {
	return QueryResult{
		QueryName:    query,
		Found:        true,
		ResolvedPath: dir,
		Source:       SourceFilesystem,
	}
}

// HasPath reports whether a usable install directory was resolved.
func (r QueryResult) HasPath() bool {
	return r.Found && r.ResolvedPath != ""
}

// UninstallCommand returns the matched entry's uninstall command, if any.
func (r QueryResult) UninstallCommand() string {
	if r.MatchedEntry == nil {
		return ""
	}
	return r.MatchedEntry.UninstallCommand
}
