package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/communitywatch/communitywatch/core"
	"github.com/communitywatch/communitywatch/storage"
)

// UserRepository implements storage.UserRepository for BadgerDB.
type UserRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository.
func NewUserRepository(backend *Backend) (*UserRepository, error) {
	idSeq, err := backend.GetSequence(userIDSeq)
	if err != nil {
		return nil, err
	}

	return &UserRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *UserRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *UserRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddUsers adds one or more users to storage.
func (r *UserRepository) AddUsers(ctx context.Context, users ...*core.User) ([]*core.User, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, user := range users {
			// Usernames are unique
			usernameKey := makeUsernameKey(user.Username)
			if _, err := tx.Get(usernameKey); err == nil {
				return storage.ErrDuplicateKey
			} else if err != badger.ErrKeyNotFound {
				return err
			}

			if user.Id == 0 {
				nextID, err := r.idSeq.Next()
				if err != nil {
					return err
				}
				// BadgerDB sequences can return 0 on first call, so we skip it
				if nextID == 0 {
					nextID, err = r.idSeq.Next()
					if err != nil {
						return err
					}
				}
				user.Id = core.ID(nextID)
			}

			user.InsertedAt = time.Now().UTC()
			user.UpdatedAt = user.InsertedAt

			// Store primary record
			key := makeUserKey(user.Id)
			value := storage.MarshalUser(user)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Store username index
			if err := tx.Set(usernameKey, storage.MarshalID(user.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return users, err
}

// UpdateUsers updates existing users.
func (r *UserRepository) UpdateUsers(ctx context.Context, users ...*core.User) ([]*core.User, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, user := range users {
			key := makeUserKey(user.Id)

			// Read old record to detect changes
			old, err := r.readUser(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			// Update timestamp
			user.UpdatedAt = time.Now().UTC()

			// Store updated record
			value := storage.MarshalUser(user)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update username index if username changed
			if old.Username != user.Username {
				oldUsernameKey := makeUsernameKey(old.Username)
				if err := tx.Delete(oldUsernameKey); err != nil {
					return err
				}
				newUsernameKey := makeUsernameKey(user.Username)
				if err := tx.Set(newUsernameKey, storage.MarshalID(user.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return users, err
}

// GetUser retrieves a single user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id core.ID) (*core.User, error) {
	var result *core.User
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeUserKey(id)
		var err error
		result, err = r.readUser(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetUserByUsername finds a user by their unique username.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	var result *core.User
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Look up ID from username index
		usernameKey := makeUsernameKey(username)
		item, err := tx.Get(usernameKey)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var userID core.ID
		err = item.Value(func(val []byte) error {
			userID, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}

		// Look up full user
		userKey := makeUserKey(userID)
		result, err = r.readUser(tx, userKey)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// Helper methods

// readUser reads a user from the transaction.
func (r *UserRepository) readUser(tx *badger.Txn, key []byte) (*core.User, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var user *core.User
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		user, unmarshalErr = storage.UnmarshalUser(val)
		return unmarshalErr
	})
	return user, err
}
