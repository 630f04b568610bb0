package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kuziva-m/mvp-sub001/internal/application"
	"github.com/kuziva-m/mvp-sub001/internal/application/consts"
	"github.com/kuziva-m/mvp-sub001/internal/application/errs"
	"github.com/kuziva-m/mvp-sub001/internal/application/events"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db"
	dbs "github.com/kuziva-m/mvp-sub001/pkg/db"
	"github.com/kuziva-m/mvp-sub001/pkg/interfaces"
)

type OutboxPoller struct {
	processors *application.Processors
	uowFactory *dbs.UOWFactory
	cfg        *OutboxConfig
	stop       chan struct{}
}

type OutboxConfig struct {
	limit    uint8
	interval uint16
}

func NewOutboxConfig() *OutboxConfig {
	limit, err := strconv.Atoi(os.Getenv("SCHEDULER_LIMIT"))
	if err != nil {
		limit = 5
	}

	interval, err := strconv.Atoi(os.Getenv("SCHEDULER_INTERVAL"))
	if err != nil {
		interval = 5
	}
	return &OutboxConfig{
		limit:    uint8(limit),
		interval: uint16(interval),
	}
}

func NewOutboxPoller(processors *application.Processors, uowFactory *dbs.UOWFactory, cfg *OutboxConfig) *OutboxPoller {
	return &OutboxPoller{processors: processors, uowFactory: uowFactory, cfg: cfg, stop: make(chan struct{})}
}

func (o *OutboxPoller) Start() {
	slog.Info("Starting outbox poller...")
	t := time.NewTimer(time.Duration(o.cfg.interval) * time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	for {
		select {
		case <-t.C:
			o.pollTable(ctx)
			t = time.NewTimer(time.Duration(o.cfg.interval) * time.Second)
		case <-o.stop:
			slog.Info("Cancelling current execution")
			cancel()
			return
		}
		// wait after poll finishes
	}
}

func (o *OutboxPoller) pollTable(ctx context.Context) {
	uow := o.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		slog.Error("error in poller", "err", err)
		return
	}

	var eventsPolled int
	countQuery := "SELECT count(*) FROM delivery.outbox WHERE status = 0"
	err = tx.QueryRow(ctx, countQuery).Scan(&eventsPolled)
	if err != nil {
		_ = uow.Rollback()
		slog.Error("error counting events", "err", err)
		return
	}
	if eventsPolled == 0 {
		_ = uow.Rollback()
		slog.Debug("no events to process")
		return
	}

	query := "SELECT * FROM delivery.outbox WHERE status = 0 ORDER BY created_at FOR NO KEY UPDATE LIMIT $1"
	rows, err := tx.Query(ctx, query, o.cfg.limit)
	if err != nil {
		_ = uow.Rollback()
		slog.Error("error in poller", "err", err)
		return
	}

	defer rows.Close()
	var eventsToProcess []db.Outbox
	var eventIDs []int64
	for rows.Next() {
		var event db.Outbox
		if err = rows.Scan(&event.ID, &event.Event, &event.Status, &event.Payload, &event.CreatedAt); err != nil {
			slog.Error("error in poller", "err", err)
			continue
		}
		eventIDs = append(eventIDs, int64(event.ID))
		eventsToProcess = append(eventsToProcess, event)
	}

	if err = rows.Err(); err != nil {
		slog.Error("error reading result sets", "err", err)
	}

	_, err = tx.Exec(ctx, "UPDATE delivery.outbox SET status = $1 WHERE id = ANY($2)", consts.Processing, eventIDs)
	if err != nil {
		slog.Error("error setting events status to processing", "err", err)
	}

	if err := uow.Commit(); err != nil {
		slog.Error("err committing", "err", err)
	}

	var wg sync.WaitGroup
	for _, event := range eventsToProcess {
		wg.Add(1)
		go func(ev db.Outbox) {
			defer wg.Done()
			if err := o.handleEvent(ctx, ev); err != nil {
				slog.Error("handler error", "event", ev.ID, "err", err)
			}
		}(event)
	}

	wg.Wait()
	slog.Debug("Finished poller thread processing")
}

func (o *OutboxPoller) handleEvent(ctx context.Context, outbox db.Outbox) error {
	var (
		uow    interfaces.UoW
		tx     pgx.Tx
		err    error
		status = consts.Processed
	)

	slog.Info("Handling event", "event", outbox.Event, "id", outbox.ID)

	switch outbox.Event {
	case events.DeliveryRequested{}.GetType():
		event := db.MapOutboxModelToDeliveryRequested(outbox)
		uow, err = o.processors.RunDelivery.Handle(ctx, event)
		if err != nil {
			status = consts.InError
		}
	case events.DeliveryFinished{}.GetType():
		event := db.MapOutboxModelToDeliveryFinished(outbox)
		uow, err = o.processors.NotifyDelivery.Handle(ctx, event)
		if err != nil {
			status = consts.InError
		}
	case events.SendMail{}.GetType():
		event := db.MapOutboxModelToSendMail(outbox)
		uow, err = o.processors.SendMail.Handle(event)
		if err != nil {
			var transient errs.TransientError
			if errors.As(err, &transient) {
				slog.Warn("Mail server unavailable, will retry later")
				status = consts.NotProcessed
			} else {
				status = consts.InError
			}
		}
	}

	if err != nil {
		slog.Error("error in handler", "event", outbox.Event, "id", outbox.ID, "err", err)
	}

	if uow == nil {
		var errTx error
		// open new transaction if there was none in event handler
		uow = o.uowFactory.GetUoW()
		tx, errTx = uow.Begin()
		if errTx != nil {
			return errors.Join(err, errTx)
		}
	} else {
		tx = uow.GetTx()
	}

	_, err = tx.Exec(ctx, "UPDATE delivery.outbox SET status = $1 WHERE id = $2", status, outbox.ID)
	if err != nil {
		errRollback := uow.Rollback()
		slog.Error("error in poller", "err", err)
		return errors.Join(err, errRollback)
	}

	if err = uow.Commit(); err != nil {
		slog.Error("error in poller", "err", err)
		return err
	}

	slog.Info("processed event", "id", outbox.ID)
	return nil
}

func (o *OutboxPoller) Stop() {
	slog.Info("Stopping poller")
	o.stop <- struct{}{}
}
