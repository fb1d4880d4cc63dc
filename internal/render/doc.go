// Package render turns timeline entries into text for people.
//
// Labels hide authorship from ordinary viewers: they see "You" for their own
// messages and "Anonymous" for everyone else. Admins see display names.
// Terminal output keeps the text as typed minus control characters; the HTML transcript
// renders Markdown and passes it through a UGC sanitising policy.
package render
