package errors

// Input errors
var (
	ErrInvalidAmount = &DomainError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount",
		Category: CategoryInput,
	}
	ErrInvalidReceiver = &DomainError{
		Code:     "INVALID_RECEIVER",
		Message:  "invalid receiver identifier",
		Category: CategoryInput,
	}
	ErrInvalidTransferKind = &DomainError{
		Code:     "INVALID_TRANSFER_KIND",
		Message:  "invalid transfer type",
		Category: CategoryInput,
	}
	ErrInvalidRequest = &DomainError{
		Code:     "INVALID_REQUEST",
		Message:  "invalid request",
		Category: CategoryInput,
	}
)

// Business-rule errors
var (
	ErrReceiverNotFound = &DomainError{
		Code:     "RECEIVER_NOT_FOUND",
		Message:  "receiver not found",
		Category: CategoryBusiness,
	}
	ErrSelfTransferNotAllowed = &DomainError{
		Code:     "SELF_TRANSFER_NOT_ALLOWED",
		Message:  "cannot transfer to yourself",
		Category: CategoryBusiness,
	}
	ErrInvalidReceiverRole = &DomainError{
		Code:     "INVALID_RECEIVER_ROLE",
		Message:  "receiver must be a merchant for merchant payments",
		Category: CategoryBusiness,
	}
	ErrSenderAccountMissing = &DomainError{
		Code:     "SENDER_ACCOUNT_MISSING",
		Message:  "sender wallet not found",
		Category: CategoryBusiness,
	}
	ErrInsufficientFunds = &DomainError{
		Code:     "INSUFFICIENT_FUNDS",
		Message:  "insufficient balance",
		Category: CategoryBusiness,
	}
	ErrAccountNotFound = &DomainError{
		Code:     "ACCOUNT_NOT_FOUND",
		Message:  "wallet not found",
		Category: CategoryBusiness,
	}
)

// Infrastructure errors
var (
	ErrEngineUnavailable = &DomainError{
		Code:     "ENGINE_UNAVAILABLE",
		Message:  "transfer engine unavailable, retry later",
		Category: CategoryInfrastructure,
	}
)

// Abuse errors
var (
	ErrRateLimited = &DomainError{
		Code:     "RATE_LIMITED",
		Message:  "rate limit exceeded",
		Category: CategoryAbuse,
	}
)
