package redisserver

import (
	"errors"
	"fmt"

	"github.com/yndnr/respkv/pkg/resp"
)

// Command error kinds, matched with errors.Is.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrWrongArgs      = errors.New("wrong number of arguments")
	ErrNotInteger     = errors.New("value is not an integer or out of range")
	ErrRateLimited    = errors.New("rate limit exceeded")
)

// CommandError is a failure answered with an error reply. The connection
// that issued the command stays open.
type CommandError struct {
	Kind error
	Msg  string
}

func (e *CommandError) Error() string { return e.Msg }

func (e *CommandError) Unwrap() error { return e.Kind }

// Reply returns the error frame sent to the client.
func (e *CommandError) Reply() resp.Message { return resp.Error(e.Msg) }

func unknownCommand(name string) *CommandError {
	return &CommandError{Kind: ErrUnknownCommand, Msg: fmt.Sprintf("ERR unknown command '%s'", name)}
}

func wrongArgs(name string) *CommandError {
	return &CommandError{Kind: ErrWrongArgs, Msg: fmt.Sprintf("ERR wrong number of arguments for '%s' command", name)}
}

func notInteger() *CommandError {
	return &CommandError{Kind: ErrNotInteger, Msg: "ERR " + ErrNotInteger.Error()}
}

func rateLimited() *CommandError {
	return &CommandError{Kind: ErrRateLimited, Msg: "ERR " + ErrRateLimited.Error()}
}

// protocolErrorReply is written before a connection is dropped for a bad frame.
func protocolErrorReply(err error) resp.Message {
	return resp.Error("ERR Protocol error: " + err.Error())
}
