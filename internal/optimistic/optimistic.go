// Package optimistic implements the apply-then-confirm-or-revert
// pattern used by the admin console for toggles and deletes: the local
// mutation lands immediately, and a failed confirmation restores the
// captured prior snapshot exactly as it was, never a recomputed
// inverse.
package optimistic

// Apply runs mutate synchronously, then confirm. If confirm fails,
// restore is called with the snapshot taken before mutate ran and the
// error is returned.
func Apply[T any](snapshot T, mutate func(), confirm func() error, restore func(T)) error {
	mutate()
	if err := confirm(); err != nil {
		restore(snapshot)
		return err
	}
	return nil
}
