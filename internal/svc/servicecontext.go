package svc

import (
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "swearena-api/internal/cache"
	"swearena-api/internal/config"
	"swearena-api/internal/model"
	battlemirror "swearena-api/internal/persistence/battle"
	"swearena-api/pkg/arena"
	battlepkg "swearena-api/pkg/battle"
	"swearena-api/pkg/telemetry"
)

type ServiceContext struct {
	Config config.Config

	Sessions *arena.Registry
	Recorder *battlepkg.Recorder

	// Optional collaborators, nil/no-op when unconfigured.
	DBConn                  sqlx.SqlConn
	ConversationEventsModel model.ConversationEventsModel
	SandboxRunsModel        model.SandboxRunsModel
	Cache                   gocache.Cache
	TTL                     cachekeys.TTLSet
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{
		Config:   c,
		Sessions: arena.NewRegistry(),
		TTL:      cachekeys.NewTTLSet(c.TTL),
	}

	recorderOpts := []battlepkg.RecorderOption{}

	if c.Telemetry.Value.Enabled() {
		recorderOpts = append(recorderOpts, battlepkg.WithRemoteLogger(telemetry.NewClient(c.Telemetry.Value)))
	}

	// The database mirror only comes up when a DSN is provided; the file tree
	// is always written regardless.
	if c.Postgres.DSN != "" {
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		svc.DBConn = conn
		svc.ConversationEventsModel = model.NewConversationEventsModel(conn)
		svc.SandboxRunsModel = model.NewSandboxRunsModel(conn)

		if len(c.Redis.Host) > 0 {
			rds := redis.MustNewRedis(c.Redis)
			svc.Cache = gocache.NewNode(rds, syncx.NewSingleFlight(), gocache.NewStat(cachekeys.Namespace), model.ErrNotFound)
		}

		mirror := battlemirror.NewService(battlemirror.Config{
			SQLConn:     conn,
			EventsModel: svc.ConversationEventsModel,
			RunsModel:   svc.SandboxRunsModel,
			Cache:       svc.Cache,
			TTL:         svc.TTL,
		})
		if mirror != nil {
			recorderOpts = append(recorderOpts, battlepkg.WithPersistence(mirror))
		}
	}

	svc.Recorder = battlepkg.NewRecorder(c.LogDir, recorderOpts...)
	return svc
}
