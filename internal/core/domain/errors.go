package domain

import "errors"

// Business-rule rejections. Surfaced to the caller, never retried.
var ErrInsufficientFunds = errors.New("insufficient funds")
var ErrSubsidyExhausted = errors.New("subsidy pool exhausted")
var ErrPoolNotActive = errors.New("subsidy pool not active")
var ErrInvalidTransition = errors.New("invalid status transition")

// Input problems. Client-correctable.
var ErrInvalidAmount = errors.New("amount must be positive")
var ErrSameAccount = errors.New("source and destination accounts are the same")
var ErrCurrencyMismatch = errors.New("account currencies do not match")
var ErrValidation = errors.New("validation failed")

// Lookup and access failures.
var ErrAccountNotFound = errors.New("account not found")
var ErrAccountInactive = errors.New("account not active")
var ErrLoanNotFound = errors.New("loan request not found")
var ErrPoolNotFound = errors.New("subsidy pool not found")
var ErrForbidden = errors.New("access forbidden")

// ErrStoreUnavailable marks an infrastructure failure reaching the backing
// store (timeout, network partition, no primary). The request itself may be
// perfectly valid; the caller should retry later.
var ErrStoreUnavailable = errors.New("store unavailable")

// ErrConcurrentModification is transient: a concurrent writer bumped the
// version between read and write. Services retry internally with a fresh
// read; callers only see it once the retry budget is spent.
var ErrConcurrentModification = errors.New("concurrent modification")

// Auth errors (edge concern, kept out of the engine services).
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
