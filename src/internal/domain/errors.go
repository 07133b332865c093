package domain

import "errors"

var ErrNotFound = errors.New("Record not found")
var ErrDuplicate = errors.New("Record already exists")

var ErrInvalidAmount = errors.New("Invalid amount")
var ErrInvalidTransactionType = errors.New("Invalid transaction type")
var ErrInvalidCategory = errors.New("Invalid transaction category")
var ErrInsufficientFunds = errors.New("Insufficient funds")
var ErrAccountInactive = errors.New("Account is not active")

var ErrInvalidLoanParameters = errors.New("Invalid loan parameters")
var ErrInvalidLoanState = errors.New("Invalid loan state")
var ErrLoanAlreadyPaidOff = errors.New("Loan is already paid off")

// Internal conditions. Services retry on these; a stale version still reaches
// the caller, wrapped, once every attempt has lost the race.
var ErrReferenceCollision = errors.New("reference number already in use")
var ErrStaleAccount = errors.New("account version is stale")
var ErrStaleLoan = errors.New("loan version is stale")

// ErrReferenceExhausted is returned when no free reference number could be
// allocated within the configured number of attempts.
var ErrReferenceExhausted = errors.New("unable to allocate a unique reference number")
