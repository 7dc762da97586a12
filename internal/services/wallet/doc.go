/*
Package wallet serves the read side of a user's wallet: the current balance
and the paginated list of ledger entries the user sent or received.

Usage:

	svc := wallet.NewService(store, logger, metrics)

	bal, err := svc.GetBalance(ctx, userID)

	page, err := svc.ListTransactions(ctx, userID, 1, 10)

Reads never change state. Page sizes default to 10 and are capped at 50.
A missing account is ACCOUNT_NOT_FOUND; a failing store is ENGINE_UNAVAILABLE.
*/
package wallet
