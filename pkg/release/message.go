package release

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
)

// Package types recorded in tag messages.
const (
	PackageType1GP = "1GP"
	PackageType2GP = "2GP"
)

const (
	keyVersionID    = "version_id"
	keyPackageType  = "package_type"
	keyDependencies = "dependencies"
)

// TagMessage is the structured body of an annotated release tag. Resolvers
// read it back to find the package version a tag installs.
type TagMessage struct {
	Summary      string
	VersionID    string
	PackageType  string
	Dependencies []map[string]any
}

// String renders the message as blank-line separated sections:
//
//	Release of version 1.2
//
//	version_id: 04t000000000000
//
//	package_type: 2GP
//
//	dependencies: [...]
func (m TagMessage) String() string {
	sections := []string{m.Summary}
	if m.VersionID != "" {
		sections = append(sections, keyVersionID+": "+m.VersionID)
	}
	if m.PackageType != "" {
		sections = append(sections, keyPackageType+": "+m.PackageType)
	}
	if len(m.Dependencies) > 0 {
		data, err := json.MarshalIndent(m.Dependencies, "", "    ")
		if err == nil {
			sections = append(sections, keyDependencies+": "+string(data))
		}
	}
	return strings.Join(sections, "\n\n")
}

// ParseTagMessage extracts the recorded fields from a tag message. Unknown
// lines are ignored; a message without fields yields only a summary.
func ParseTagMessage(msg string) TagMessage {
	var m TagMessage
	var summary []string
	var deps strings.Builder
	inDeps := false

	sc := bufio.NewScanner(strings.NewReader(msg))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if inDeps {
			deps.WriteString(line)
			deps.WriteByte('\n')
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		switch {
		case ok && strings.TrimSpace(key) == keyVersionID:
			m.VersionID = strings.TrimSpace(value)
		case ok && strings.TrimSpace(key) == keyPackageType:
			m.PackageType = strings.TrimSpace(value)
		case ok && strings.TrimSpace(key) == keyDependencies:
			inDeps = true
			deps.WriteString(value)
			deps.WriteByte('\n')
		case m.VersionID == "" && m.PackageType == "":
			summary = append(summary, line)
		}
	}
	m.Summary = strings.TrimSpace(strings.Join(summary, "\n"))
	if inDeps {
		_ = json.Unmarshal([]byte(deps.String()), &m.Dependencies)
	}
	return m
}

// DefaultSummary is the first line of a tag message when none is given.
func DefaultSummary(v string) string {
	return fmt.Sprintf("Release of version %s", v)
}
