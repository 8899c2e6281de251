package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// String renders a person as "Name (born--died)", omitting unknown years.
func (p Person) String() string {
	if p.Born == nil && p.Died == nil {
		return p.Name
	}
	var born, died string
	if p.Born != nil {
		born = strconv.Itoa(*p.Born)
	}
	if p.Died != nil {
		died = strconv.Itoa(*p.Died)
	}
	return fmt.Sprintf("%s (%s--%s)", p.Name, born, died)
}

// String renders a voice the way ParseVoice reads it back.
func (v Voice) String() string {
	if v.Range != "" {
		return v.Range + ", " + v.Name
	}
	if v.Name == "" {
		return noRangePrefix
	}
	if ParseVoice(v.Name).Range != "" {
		return noRangePrefix + " " + v.Name
	}
	return v.Name
}

func joinPeople(people []Person, sep string) string {
	parts := make([]string, len(people))
	for i, p := range people {
		parts[i] = p.String()
	}
	return strings.Join(parts, sep)
}

// Format writes one record in catalog form followed by a blank line.
// Only populated fields are written.
func Format(w io.Writer, p Print) error {
	bw := bufio.NewWriter(w)
	c := p.Composition()

	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(bw, "%s: %s\n", label, value)
		}
	}

	field("Print Number", strconv.Itoa(p.ID))
	field("Composer", joinPeople(c.Composers, "; "))
	field("Title", c.Name)
	field("Genre", c.Genre)
	field("Key", c.Key)
	if c.Year != nil {
		field("Composition Year", strconv.Itoa(*c.Year))
	}
	field("Edition", p.Edition.Name)
	field("Editor", joinPeople(p.Edition.Editors, ", "))
	for i, v := range c.Voices {
		field(fmt.Sprintf("Voice %d", i+1), v.String())
	}
	field("Partiture", p.Partiture.String())
	field("Incipit", c.Incipit)
	bw.WriteString("\n")

	return bw.Flush()
}

// FormatAll writes every record in order.
func FormatAll(w io.Writer, prints []Print) error {
	for _, p := range prints {
		if err := Format(w, p); err != nil {
			return err
		}
	}
	return nil
}
