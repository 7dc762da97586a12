/*
Package transfer moves money between two wallet accounts.

A transfer is validated completely before anything changes. The debit, the
credit and the ledger entry then happen inside one store transaction that
locks both accounts in ascending user id order:

	svc := transfer.NewService(store, transfer.DefaultConfig(), logger, metrics, notifier)

	tx, err := svc.Transfer(ctx, transfer.Request{
	    SenderID:    1,
	    Receiver:    "store@example.com",
	    Amount:      decimal.RequireFromString("25.50"),
	    Kind:        models.TransactionTypeMerchantPayment,
	    Description: "coffee",
	})

Errors are *errors.DomainError values. Input and business errors describe the
request; ENGINE_UNAVAILABLE means nothing was applied and the caller may retry.
Failed attempts are not written to the ledger.
*/
package transfer
