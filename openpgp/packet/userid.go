// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packet

import (
	"io"
	"strings"
)

// UserId contains text that is intended to represent the name and email
// address of the key holder. See RFC 4880, section 5.11. By convention, this
// takes the form "Full Name (Comment) <email@example.com>"
type UserId struct {
	Id string // By convention, this takes the form "Full Name (Comment) <email@example.com>" which is split out in the fields below.

	Name, Comment, Email string
}

func hasInvalidCharacters(s string) bool {
	for _, c := range s {
		switch c {
		case '(', ')', '<', '>', 0:
			return true
		}
	}
	return false
}

// NewUserId returns a UserId or nil if any of the arguments contain invalid
// characters. The invalid characters are '\x00', '(', ')', '<' and '>'
func NewUserId(name, comment, email string) *UserId {
	// RFC 4880 doesn't deal with the structure of userid strings; the
	// name, comment and email form is just a convention.
	if hasInvalidCharacters(name) || hasInvalidCharacters(comment) || hasInvalidCharacters(email) {
		return nil
	}

	uid := new(UserId)
	uid.Name, uid.Comment, uid.Email = name, comment, email
	uid.Id = name
	if len(comment) > 0 {
		if len(uid.Id) > 0 {
			uid.Id += " "
		}
		uid.Id += "("
		uid.Id += comment
		uid.Id += ")"
	}
	if len(email) > 0 {
		if len(uid.Id) > 0 {
			uid.Id += " "
		}
		uid.Id += "<"
		uid.Id += email
		uid.Id += ">"
	}
	return uid
}

func (uid *UserId) parse(r io.Reader) (err error) {
	// RFC 4880, section 5.11
	b, err := io.ReadAll(r)
	if err != nil {
		return
	}
	uid.Id = strings.ToValidUTF8(string(b), "�")
	uid.parseAttributes()
	return
}

// Serialize marshals uid to w in the form of an OpenPGP packet, including
// header.
func (uid *UserId) Serialize(w io.Writer) error {
	err := serializeHeader(w, packetTypeUserId, len(uid.Id))
	if err != nil {
		return err
	}
	_, err = w.Write([]byte(uid.Id))
	return err
}

// parseAttributes extracts the name, comment and email from a user id string
// that is formatted as "Full Name (Comment) <email@example.com>".
func (uid *UserId) parseAttributes() {
	id := uid.Id

	n, start, end := parseSubpacketRegion(id, 0, len(id), '<', '>')
	if start < end {
		uid.Email = id[start:end]
		id = id[:n]
	}
	n, start, end = parseSubpacketRegion(id, 0, len(id), '(', ')')
	if start < end {
		uid.Comment = id[start:end]
		id = id[:n]
	}
	uid.Name = strings.TrimSpace(id)
}

// parseSubpacketRegion finds the last region delimited by open and close in
// s, returning the offset before the opening delimiter and the content
// bounds.
func parseSubpacketRegion(s string, from, to int, open, close byte) (outer, start, end int) {
	end = strings.LastIndexByte(s[from:to], close)
	if end == -1 {
		return to, 0, 0
	}
	start = strings.LastIndexByte(s[from:end], open)
	if start == -1 {
		return to, 0, 0
	}
	return start, start + 1, end
}
