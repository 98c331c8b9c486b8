// Package store implements the Sequence Store: a write-once, read-many sequence of
// values persisted in a single compressed file.
//
// # Lifecycle
//
//	NotStarted --Open--> Writing --Close--> WriteFinished --RemoveFile--> FileRemoved
//
// Add is only allowed while Writing. Iter and All are allowed in NotStarted (which
// finishes the store first) and WriteFinished. Close is idempotent once the write
// session is finished. Every other combination returns a *ProtocolError that
// matches errs.ErrProtocolViolation.
//
// # File Format
//
// A file is one compressed stream holding the identity tag record followed by the
// value records in insertion order, produced by the encoding package. There is no
// footer or record count: the end of the stream ends the sequence.
//
// # Identity Tags
//
// The identity tag written by Open is compared with the store's configured tag by
// every read session before any value is returned. A file written with tag "A"
// cannot be read by a store expecting "B" or expecting no tag.
//
// # Example
//
//	s, err := store.New(store.WithIdentityTag("orders-v1"))
//	if err != nil {
//		return err
//	}
//	defer s.RemoveFile(ctx)
//
//	err = s.Write(ctx, func(s *store.Store) error {
//		for _, o := range orders {
//			if err := s.AddAny(o); err != nil {
//				return err
//			}
//		}
//		return nil
//	})
//	if err != nil {
//		return err
//	}
//
//	for v, err := range s.All(ctx) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(v)
//	}
package store
