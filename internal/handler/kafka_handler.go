package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"pump-sync/internal/convert"
	"pump-sync/internal/database"
	"pump-sync/internal/health"
	"pump-sync/internal/models"
)

// SyncProcessor is the batch orchestrator: it receives raw event batches
// from the Kafka topic the upstream fetcher publishes to, runs the
// conversion core once per batch and hands the canonical records to the
// repository. One processor serves all subjects, but each batch gets a
// fresh conversion context.
type SyncProcessor struct {
	db         *database.Repository
	dispatcher *convert.Dispatcher
	convertCfg convert.Config
	tracker    *health.Tracker

	activeSubjects   map[string]models.SubjectState
	lastEventTimes   map[string]int64
	activeSubjectsMu sync.RWMutex
	lastEventTimesMu sync.Mutex
}

func NewSyncProcessor(repo *database.Repository, dataSource string, convertCfg convert.Config, tracker *health.Tracker) (*SyncProcessor, error) {
	p := &SyncProcessor{
		db:             repo,
		dispatcher:     convert.NewDispatcher(convert.NewFactory(dataSource)),
		convertCfg:     convertCfg,
		tracker:        tracker,
		activeSubjects: make(map[string]models.SubjectState),
		lastEventTimes: make(map[string]int64),
	}

	if err := p.loadActiveSubjects(); err != nil {
		return nil, err
	}
	log.Printf("Service restored. Syncing %d subjects.", len(p.activeSubjects))
	return p, nil
}

func (p *SyncProcessor) loadActiveSubjects() error {
	subjects, err := p.db.GetActiveSubjects()
	if err != nil {
		return err
	}
	p.activeSubjectsMu.Lock()
	defer p.activeSubjectsMu.Unlock()
	for _, subject := range subjects {
		p.activeSubjects[subject.SubjectID] = subject
	}
	return nil
}

// HandleBatchMessage processes one raw event batch from Kafka.
func (p *SyncProcessor) HandleBatchMessage(msgValue []byte) {
	var batch models.RawEventBatch
	if err := json.Unmarshal(msgValue, &batch); err != nil {
		log.Printf("Error unmarshalling raw event batch: %v. Raw message: %s", err, string(msgValue))
		return
	}
	if batch.SubjectID == "" || len(batch.Events) == 0 {
		return
	}

	p.activeSubjectsMu.RLock()
	subject, isActive := p.activeSubjects[batch.SubjectID]
	p.activeSubjectsMu.RUnlock()
	if !isActive || subject.Status != "running" {
		log.Printf("[%s] Received batch for an inactive subject, skipping %d events.", batch.SubjectID, len(batch.Events))
		return
	}

	records, dropped := p.ProcessBatch(batch)
	if err := p.db.SaveRecords(batch.SubjectID, records); err != nil {
		log.Printf("[%s] ERROR saving records: %v", batch.SubjectID, err)
		return
	}
	p.tracker.ObserveBatch(records, dropped)
	p.noteLastEventTime(batch)

	log.Printf("[%s] Batch processed: %d events -> %d records (%d dropped).",
		batch.SubjectID, len(batch.Events), len(records), dropped)
}

// ProcessBatch runs the conversion core over one batch: events are ordered
// by device time, the correlation pre-pass runs to completion, then every
// event is dispatched. Returns the records plus the unclaimed-event count.
func (p *SyncProcessor) ProcessBatch(batch models.RawEventBatch) ([]models.Record, int) {
	events := make([]models.RawDeviceEvent, len(batch.Events))
	copy(events, batch.Events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].DeviceTicks < events[j].DeviceTicks
	})

	ctx := convert.BuildContext(p.convertCfg, events)
	records := p.dispatcher.Dispatch(events, ctx)

	dropped := 0
	for _, ev := range events {
		if !p.dispatcher.Claims(ev) {
			dropped++
		}
	}
	return records, dropped
}

func (p *SyncProcessor) noteLastEventTime(batch models.RawEventBatch) {
	var latest int64
	for _, ev := range batch.Events {
		if millis := convert.EventTime(ev).UnixMilli(); millis > latest {
			latest = millis
		}
	}
	if latest == 0 {
		return
	}
	p.lastEventTimesMu.Lock()
	if latest > p.lastEventTimes[batch.SubjectID] {
		p.lastEventTimes[batch.SubjectID] = latest
	}
	p.lastEventTimesMu.Unlock()
}

// HandleSyncStartMessage starts syncing a subject (MQTT sync_start topic).
func (p *SyncProcessor) HandleSyncStartMessage(msgValue []byte) {
	var payload models.SyncStartPayload
	if err := json.Unmarshal(msgValue, &payload); err != nil {
		log.Printf("Error unmarshalling sync_start payload: %v", err)
		return
	}
	if payload.SubjectID == "" {
		return
	}

	if err := p.db.StartSubject(payload.SubjectID, payload.DeviceID); err != nil {
		log.Printf("[%s] ERROR starting subject: %v", payload.SubjectID, err)
		return
	}
	p.activeSubjectsMu.Lock()
	p.activeSubjects[payload.SubjectID] = models.SubjectState{
		SubjectID: payload.SubjectID,
		DeviceID:  payload.DeviceID,
		Status:    "running",
		StartTime: time.Now().Unix(),
	}
	p.activeSubjectsMu.Unlock()
	log.Printf("[%s] Sync started (device %s).", payload.SubjectID, payload.DeviceID)
}

// HandleSyncActionMessage stops or resumes a subject (MQTT sync_action
// topic). Unknown actions are logged and ignored.
func (p *SyncProcessor) HandleSyncActionMessage(msgValue []byte) {
	var payload models.SyncActionPayload
	if err := json.Unmarshal(msgValue, &payload); err != nil {
		log.Printf("Error unmarshalling sync_action payload: %v", err)
		return
	}
	if payload.SubjectID == "" {
		return
	}

	switch payload.Action {
	case "stop":
		if err := p.db.StopSubject(payload.SubjectID); err != nil {
			log.Printf("[%s] ERROR stopping subject: %v", payload.SubjectID, err)
			return
		}
		p.activeSubjectsMu.Lock()
		if subject, ok := p.activeSubjects[payload.SubjectID]; ok {
			subject.Status = "stopped"
			p.activeSubjects[payload.SubjectID] = subject
		}
		p.activeSubjectsMu.Unlock()
		log.Printf("[%s] Sync stopped.", payload.SubjectID)
	case "resume":
		p.activeSubjectsMu.RLock()
		subject, ok := p.activeSubjects[payload.SubjectID]
		p.activeSubjectsMu.RUnlock()
		deviceID := ""
		if ok {
			deviceID = subject.DeviceID
		}
		if err := p.db.StartSubject(payload.SubjectID, deviceID); err != nil {
			log.Printf("[%s] ERROR resuming subject: %v", payload.SubjectID, err)
			return
		}
		p.activeSubjectsMu.Lock()
		p.activeSubjects[payload.SubjectID] = models.SubjectState{
			SubjectID: payload.SubjectID,
			DeviceID:  deviceID,
			Status:    "running",
			StartTime: time.Now().Unix(),
		}
		p.activeSubjectsMu.Unlock()
		log.Printf("[%s] Sync resumed.", payload.SubjectID)
	default:
		log.Printf("[%s] Unknown sync action %q, ignoring.", payload.SubjectID, payload.Action)
	}
}

// RunHousekeepingCycle periodically flushes last-event times to the DB,
// prunes stopped subjects from the cache and logs a status report.
func (p *SyncProcessor) RunHousekeepingCycle(ctx context.Context) {
	log.Println("Housekeeping cycle started. Will update DB every 1 minute.")
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Housekeeping cycle stopping.")
			return
		case <-ticker.C:
			p.runHousekeeping()
		}
	}
}

func (p *SyncProcessor) runHousekeeping() {
	var subjectsToPrune []string
	p.activeSubjectsMu.RLock()
	for subjectID, subject := range p.activeSubjects {
		if subject.Status == "stopped" {
			subjectsToPrune = append(subjectsToPrune, subjectID)
		}
	}
	p.activeSubjectsMu.RUnlock()

	if len(subjectsToPrune) > 0 {
		p.activeSubjectsMu.Lock()
		for _, subjectID := range subjectsToPrune {
			delete(p.activeSubjects, subjectID)
		}
		p.activeSubjectsMu.Unlock()
	}

	p.lastEventTimesMu.Lock()
	updatesToProcess := make(map[string]int64, len(p.lastEventTimes))
	for subjectID, millis := range p.lastEventTimes {
		updatesToProcess[subjectID] = millis
	}
	p.lastEventTimes = make(map[string]int64)
	p.lastEventTimesMu.Unlock()

	if len(updatesToProcess) > 0 {
		if err := p.db.BatchUpdateLastEventTime(updatesToProcess); err != nil {
			log.Printf("ERROR during housekeeping DB update: %v", err)
		} else {
			log.Printf("Housekeeping: Updated last event time for %d subjects in DB.", len(updatesToProcess))
		}
	}

	var report strings.Builder
	report.WriteString("\n--- Housekeeping Report ---\n")
	report.WriteString(fmt.Sprintf("%-15s | %-15s | %-10s\n", "Subject", "Device", "New Data?"))
	report.WriteString(strings.Repeat("-", 46) + "\n")

	p.activeSubjectsMu.RLock()
	if len(p.activeSubjects) == 0 {
		report.WriteString("No active subjects being synced.\n")
	} else {
		for subjectID, subject := range p.activeSubjects {
			newData := "false"
			if _, ok := updatesToProcess[subjectID]; ok {
				newData = "true"
			}
			report.WriteString(fmt.Sprintf("%-15s | %-15s | %-10s\n", subjectID, subject.DeviceID, newData))
		}
	}
	p.activeSubjectsMu.RUnlock()

	if len(subjectsToPrune) > 0 {
		report.WriteString(fmt.Sprintf("Pruned %d stopped subject(s) from cache.\n", len(subjectsToPrune)))
	}
	report.WriteString("------------------------------------------")
	log.Println(report.String())
}
