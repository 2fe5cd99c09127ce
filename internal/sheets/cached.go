package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pnl_dashboard/config"
	"pnl_dashboard/internal/cache"
	"pnl_dashboard/logger"
	"pnl_dashboard/metrics"
)

type cachedRow struct {
	N int               `json:"n"`
	V map[string]string `json:"v"`
}

type cachedTable struct {
	Headers []string    `json:"h"`
	Rows    []cachedRow `json:"r"`
}

// Cached puts a read-through cache keyed by sheetId:tab in front of a
// source. Writes go to the source and drop the cached copy. A ttl of zero
// or less disables caching.
type Cached struct {
	next    Source
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *logger.Entry
}

func NewCached(next Source, c cache.Cache, ttl time.Duration, m *metrics.Metrics) *Cached {
	if m == nil {
		m = metrics.New()
	}
	return &Cached{
		next:    next,
		cache:   c,
		ttl:     ttl,
		metrics: m,
		log:     logger.GetLogger().WithComponent("sheets"),
	}
}

func (c *Cached) ReadTable(ctx context.Context, ref config.TableRef) (Table, error) {
	if c.ttl > 0 {
		if table, ok := c.lookup(ctx, ref); ok {
			c.metrics.RecordCache(true)
			return table, nil
		}
		c.metrics.RecordCache(false)
	}
	return c.Refresh(ctx, ref)
}

// Refresh reads ref from the source and replaces the cached copy.
func (c *Cached) Refresh(ctx context.Context, ref config.TableRef) (Table, error) {
	started := time.Now()
	table, err := c.next.ReadTable(ctx, ref)
	c.metrics.RecordTableRead(err)
	if err != nil {
		return Table{}, err
	}
	logger.LogDuration(c.log.WithField("table", ref.Key()), "read_table", started, logger.Fields{"rows": len(table.Rows)})
	if c.ttl > 0 {
		c.store(ctx, ref, table)
	}
	return table, nil
}

func (c *Cached) lookup(ctx context.Context, ref config.TableRef) (Table, bool) {
	data, err := c.cache.Get(ctx, ref.Key())
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			c.log.WithError(err).WithField("table", ref.Key()).Warn("cache read failed")
		}
		return Table{}, false
	}
	var wire cachedTable
	if err := json.Unmarshal(data, &wire); err != nil {
		c.log.WithError(err).WithField("table", ref.Key()).Warn("cache entry corrupt")
		return Table{}, false
	}
	table := Table{Ref: ref, Headers: wire.Headers, Rows: make([]Row, len(wire.Rows))}
	for i, r := range wire.Rows {
		table.Rows[i] = Row{Number: r.N, Values: r.V}
	}
	return table, true
}

func (c *Cached) store(ctx context.Context, ref config.TableRef, table Table) {
	wire := cachedTable{Headers: table.Headers, Rows: make([]cachedRow, len(table.Rows))}
	for i, r := range table.Rows {
		wire.Rows[i] = cachedRow{N: r.Number, V: r.Values}
	}
	data, err := json.Marshal(wire)
	if err != nil {
		c.log.WithError(err).Warn("cache encode failed")
		return
	}
	if err := c.cache.Set(ctx, ref.Key(), data, c.ttl); err != nil {
		c.log.WithError(err).WithField("table", ref.Key()).Warn("cache write failed")
	}
}

// Invalidate drops the cached copy of ref.
func (c *Cached) Invalidate(ctx context.Context, ref config.TableRef) error {
	return c.cache.Delete(ctx, ref.Key())
}

func (c *Cached) writer() (Writer, error) {
	w, ok := c.next.(Writer)
	if !ok {
		return nil, ErrReadOnly
	}
	return w, nil
}

func (c *Cached) afterWrite(ctx context.Context, ref config.TableRef, action string) {
	c.metrics.RecordTableWrite()
	if err := c.Invalidate(ctx, ref); err != nil {
		c.log.WithError(err).WithField("table", ref.Key()).Warn("cache invalidate failed")
	}
	c.log.WithFields(logger.Fields{"table": ref.Key(), "action": action}).Info("table row written")
}

func (c *Cached) AppendRow(ctx context.Context, ref config.TableRef, values map[string]string) error {
	w, err := c.writer()
	if err != nil {
		return fmt.Errorf("%s: %w", ref.Key(), err)
	}
	if err := w.AppendRow(ctx, ref, values); err != nil {
		return err
	}
	c.afterWrite(ctx, ref, "add")
	return nil
}

func (c *Cached) UpdateRow(ctx context.Context, ref config.TableRef, rowNumber int, values map[string]string) error {
	w, err := c.writer()
	if err != nil {
		return fmt.Errorf("%s: %w", ref.Key(), err)
	}
	if err := w.UpdateRow(ctx, ref, rowNumber, values); err != nil {
		return err
	}
	c.afterWrite(ctx, ref, "update")
	return nil
}

func (c *Cached) DeleteRow(ctx context.Context, ref config.TableRef, rowNumber int) error {
	w, err := c.writer()
	if err != nil {
		return fmt.Errorf("%s: %w", ref.Key(), err)
	}
	if err := w.DeleteRow(ctx, ref, rowNumber); err != nil {
		return err
	}
	c.afterWrite(ctx, ref, "delete")
	return nil
}
