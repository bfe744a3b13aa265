package repomanager

import (
	"context"
	"database/sql"

	"github.com/crewgate/crewgate/internal/dbx"
	"github.com/crewgate/crewgate/internal/server/repositories/refreshtokens"
	"github.com/crewgate/crewgate/internal/server/repositories/services"
	"github.com/crewgate/crewgate/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX, so a
// service can run several repositories against one shared transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Services(db dbx.DBTX) services.Repository
}
