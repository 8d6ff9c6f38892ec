package workers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/purplefish/interviewchat/internal/services"
	"github.com/purplefish/interviewchat/internal/utils"
)

// TranscriptWorkerPool uploads transcripts of finished interviews queued on
// services.TranscriptStream.
type TranscriptWorkerPool struct {
	Redis       *redis.Client
	Transcripts services.TranscriptService
	NumWorkers  int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
	ExportTimeout  time.Duration
}

func (p *TranscriptWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Transcripts == nil {
		return errors.New("TranscriptWorkerPool missing dependency: Redis/Transcripts must be set")
	}
	p.defaults()

	if err := p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err(); err != nil && !isBusyGroup(err) {
		return err
	}

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *TranscriptWorkerPool) defaults() {
	if p.Stream == "" {
		p.Stream = services.TranscriptStream
	}
	if p.Group == "" {
		p.Group = "transcript-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.ExportTimeout <= 0 {
		p.ExportTimeout = 30 * time.Second
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func (p *TranscriptWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				p.reclaim(ctx, consumer)
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("transcript stream read failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				if p.handleMsg(ctx, msg) {
					_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
				}
			}
		}
	}
}

// reclaim retries entries another consumer left pending for over a minute.
func (p *TranscriptWorkerPool) reclaim(ctx context.Context, consumer string) {
	msgs, _, err := p.Redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   p.Stream,
		Group:    p.Group,
		Consumer: consumer,
		MinIdle:  time.Minute,
		Start:    "0-0",
		Count:    10,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("transcript reclaim failed")
		}
		return
	}
	for _, msg := range msgs {
		if p.handleMsg(ctx, msg) {
			_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
		}
	}
}

// handleMsg exports one queued transcript. It reports whether the entry is
// done with; transient failures stay pending for redelivery.
func (p *TranscriptWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) bool {
	id, _ := msg.Values["conversation_id"].(string)
	if id == "" {
		p.Logger.WithField("redis_id", msg.ID).Warn("transcript entry without conversation_id")
		return true
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":        msg.ID,
		"conversation_id": id,
	})

	ctx, cancel := context.WithTimeout(ctx, p.ExportTimeout)
	defer cancel()

	start := time.Now()
	path, err := p.Transcripts.Export(ctx, id)
	if err != nil {
		switch utils.CodeOf(err) {
		case utils.CodeNotFound, utils.CodeConflict:
			log.WithError(err).Warn("transcript export skipped")
			return true
		}
		log.WithError(err).Error("transcript export failed")
		return false
	}

	log.WithFields(logrus.Fields{
		"path":       path,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("transcript exported")
	return true
}
