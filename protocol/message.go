// Package protocol holds the message vocabulary shared by the word transfer
// server and client.
//
// Messages carry no type tag and no framing beyond the datagram boundary. The
// role of a message is given by its position in the session and, for the two
// sentinels, by its literal content:
//
//	Client                          Server
//	<filename>            ---->
//	                      <----     <first word> | NOTFOUND
//	WORD1                 ---->
//	                      <----     <word>
//	...
//	WORDn                 ---->
//	                      <----     END
package protocol

import (
	"bytes"
	"strconv"
	"strings"
)

const (
	NotFound = "NOTFOUND"
	End      = "END"

	RequestPrefix = "WORD"
)

var (
	notFoundBytes = []byte(NotFound)
	endBytes      = []byte(End)
)

func IsNotFound(b []byte) bool {
	return bytes.Equal(b, notFoundBytes)
}

func IsEnd(b []byte) bool {
	return bytes.Equal(b, endBytes)
}

func NotFoundMessage() []byte {
	return []byte(NotFound)
}

func EndMessage() []byte {
	return []byte(End)
}

// EncodeRequest labels the n-th pull request of a session, n starts at 1.
func EncodeRequest(n uint64) []byte {
	return strconv.AppendUint([]byte(RequestPrefix), n, 10)
}

// ParseRequest reports the counter carried by a request label. Labels that
// are not of the WORD<n> form with n >= 1 are not rejected by the server, they
// are only treated as plain synchronization pulses.
func ParseRequest(b []byte) (uint64, bool) {
	s := string(b)
	if !strings.HasPrefix(s, RequestPrefix) {
		return 0, false
	}
	digits := s[len(RequestPrefix):]
	if digits == "" || digits[0] == '+' || digits[0] == '0' {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
