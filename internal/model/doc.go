// Package model defines the records the terminal works with: members and
// articles mirrored from the club's accounting service, the sales recorded
// locally until the service acknowledges them, and the credentials used to
// talk to that service.
//
// Scan tokens are normalized with ParseKeycode before they are stored or
// looked up, so a token read from a 7-character hexadecimal RFID tag and the
// same token written as a 10-digit decimal code resolve to the same member.
//
// Dates are civil dates (no time of day, no zone). A sale is dated with the
// terminal's local date at checkout, and article prices are valid for an
// inclusive range of dates.
package model
