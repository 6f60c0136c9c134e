// Package memstore is an in-memory backend implementing the same contracts
// as the MongoDB stores. It backs store_backend=memory and the service and
// handler tests.
//
// All collections share one mutex, so every multi-record operation
// (decision, revert, conditional insert, favorite toggle) is atomic.
package memstore

import (
	"sync"

	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DB holds every collection.
type DB struct {
	mu sync.Mutex

	users     map[primitive.ObjectID]models.User
	files     map[primitive.ObjectID]models.File
	folders   map[primitive.ObjectID]models.Folder
	favorites map[favKey]models.Favorite
	approvals map[primitive.ObjectID]models.ApprovalRequest
	events    []audit.Event
}

type favKey struct {
	user, file primitive.ObjectID
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		users:     make(map[primitive.ObjectID]models.User),
		files:     make(map[primitive.ObjectID]models.File),
		folders:   make(map[primitive.ObjectID]models.Folder),
		favorites: make(map[favKey]models.Favorite),
		approvals: make(map[primitive.ObjectID]models.ApprovalRequest),
	}
}

// Users returns the users view.
func (db *DB) Users() *Users { return &Users{db: db} }

// Files returns the files view.
func (db *DB) Files() *Files { return &Files{db: db} }

// Folders returns the folders view.
func (db *DB) Folders() *Folders { return &Folders{db: db} }

// Favorites returns the favorites view.
func (db *DB) Favorites() *Favorites { return &Favorites{db: db} }

// Approvals returns the approvals view.
func (db *DB) Approvals() *Approvals { return &Approvals{db: db} }

// Audit returns the audit event view.
func (db *DB) Audit() *Audit { return &Audit{db: db} }
