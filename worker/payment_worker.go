package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"arbor-payment-api/database"
	"arbor-payment-api/models"
	"arbor-payment-api/queue"
	"arbor-payment-api/services/payment/authorizenet"
	"arbor-payment-api/types"
)

// gatewayService is the slice of the payment service the worker needs.
type gatewayService interface {
	Settle(transactionID string, amount *float64) (*authorizenet.TransactionResult, error)
	Void(transactionID string) (*authorizenet.TransactionResult, error)
}

// transactionStore is the slice of the database layer the worker needs.
type transactionStore interface {
	GetTransaction(id string) (*models.Transaction, error)
	UpdateTransactionStatus(id, status string) error
	LockTransaction(transactionID string) (bool, error)
	ReleaseTransactionLock(transactionID string) error
}

// Worker runs settlement and void jobs off the Redis queue.
type Worker struct {
	queue     *queue.Queue
	db        transactionStore
	gateway   gatewayService
	shutdown  chan struct{}
	isRunning bool
}

func NewWorker(q *queue.Queue, db transactionStore, gateway gatewayService) *Worker {
	return &Worker{
		queue:    q,
		db:       db,
		gateway:  gateway,
		shutdown: make(chan struct{}),
	}
}

// Start begins processing jobs and promoting delayed jobs.
func (w *Worker) Start(concurrency int) {
	w.isRunning = true

	for i := 0; i < concurrency; i++ {
		go w.processJobs(i)
	}
	go w.promoteDelayedJobs()

	log.Printf("Started %d worker goroutines", concurrency)
}

// Stop signals the worker to stop processing jobs.
func (w *Worker) Stop() {
	if !w.isRunning {
		return
	}

	log.Println("Stopping worker...")
	close(w.shutdown)
	w.isRunning = false
}

func (w *Worker) processJobs(workerID int) {
	log.Printf("Worker %d starting", workerID)

	for {
		select {
		case <-w.shutdown:
			log.Printf("Worker %d shutting down", workerID)
			return
		default:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			job, err := w.queue.Dequeue(ctx, 5*time.Second)
			cancel()

			if err != nil {
				log.Printf("Worker %d: Error dequeuing job: %v", workerID, err)
				time.Sleep(time.Second)
				continue
			}

			if job == nil {
				time.Sleep(100 * time.Millisecond)
				continue
			}

			log.Printf("Worker %d processing job %s of type %s", workerID, job.ID, job.Type)

			jobErr := w.processJob(job)
			if jobErr != nil {
				log.Printf("Worker %d: Error processing job %s: %v", workerID, job.ID, jobErr)

				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				failErr := w.queue.FailJob(ctx, job, jobErr)
				cancel()

				if failErr != nil {
					log.Printf("Worker %d: Error marking job %s as failed: %v", workerID, job.ID, failErr)
				}

				time.Sleep(time.Second)
				continue
			}

			ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
			completeErr := w.queue.CompleteJob(ctx, job)
			cancel()

			if completeErr != nil {
				log.Printf("Worker %d: Error marking job %s as complete: %v", workerID, job.ID, completeErr)
			}
		}
	}
}

// promoteDelayedJobs periodically moves due delayed jobs onto the main
// queue so retries and scheduled voids actually run.
func (w *Worker) promoteDelayedJobs() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdown:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := w.queue.ProcessDelayedJobs(ctx); err != nil {
				log.Printf("Error promoting delayed jobs: %v", err)
			}
			cancel()
		}
	}
}

// processJob runs one job. A non-nil return means the attempt failed and
// the queue should schedule a retry; permanent gateway rejections are
// recorded on the transaction and do not return an error.
func (w *Worker) processJob(job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeSettleTransaction:
		return w.processSettleTransaction(job)
	case queue.JobTypeVoidTransaction:
		return w.processVoidTransaction(job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (w *Worker) processSettleTransaction(job *queue.Job) error {
	id, ok := types.JobString(job.Data, types.JobFieldTransactionID)
	if !ok || id == "" {
		return fmt.Errorf("invalid transaction_id in job data")
	}
	gatewayID, ok := types.JobString(job.Data, types.JobFieldGatewayID)
	if !ok || gatewayID == "" {
		return fmt.Errorf("invalid gateway_transaction_id in job data")
	}

	locked, err := w.db.LockTransaction(id)
	if err != nil {
		return err
	}
	if !locked {
		return fmt.Errorf("transaction %s is locked, retrying later", id)
	}
	defer w.db.ReleaseTransactionLock(id)

	txn, err := w.db.GetTransaction(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Printf("Transaction %s no longer exists, dropping settle job", id)
			return nil
		}
		return err
	}

	if txn.Status != models.TransactionStatusSettling {
		log.Printf("Transaction %s is %s, skipping settlement", id, txn.Status)
		return nil
	}

	_, err = w.gateway.Settle(gatewayID, types.JobAmount(job.Data))
	if err != nil {
		if authorizenet.IsResponseError(err) {
			log.Printf("Gateway rejected settlement of transaction %s: %v", id, err)
			return w.db.UpdateTransactionStatus(id, models.TransactionStatusFailed)
		}

		if w.queue.IsLastAttempt(job) {
			if uerr := w.db.UpdateTransactionStatus(id, models.TransactionStatusFailed); uerr != nil {
				log.Printf("Error marking transaction %s failed after final attempt: %v", id, uerr)
			}
		}
		return err
	}

	return w.db.UpdateTransactionStatus(id, models.TransactionStatusCaptured)
}

// processVoidTransaction releases an authorization that was never
// captured. Transactions that moved on from authorized are left alone.
func (w *Worker) processVoidTransaction(job *queue.Job) error {
	id, ok := types.JobString(job.Data, types.JobFieldTransactionID)
	if !ok || id == "" {
		return fmt.Errorf("invalid transaction_id in job data")
	}
	gatewayID, ok := types.JobString(job.Data, types.JobFieldGatewayID)
	if !ok || gatewayID == "" {
		return fmt.Errorf("invalid gateway_transaction_id in job data")
	}

	locked, err := w.db.LockTransaction(id)
	if err != nil {
		return err
	}
	if !locked {
		return fmt.Errorf("transaction %s is locked, retrying later", id)
	}
	defer w.db.ReleaseTransactionLock(id)

	txn, err := w.db.GetTransaction(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Printf("Transaction %s no longer exists, dropping void job", id)
			return nil
		}
		return err
	}

	if txn.Status != models.TransactionStatusAuthorized {
		log.Printf("Transaction %s is %s, skipping expiry void", id, txn.Status)
		return nil
	}

	_, err = w.gateway.Void(gatewayID)
	if err != nil {
		if authorizenet.IsResponseError(err) {
			// Nothing to retry: the auth likely expired at the gateway.
			log.Printf("Gateway rejected void of transaction %s: %v", id, err)
			return w.db.UpdateTransactionStatus(id, models.TransactionStatusFailed)
		}
		return err
	}

	return w.db.UpdateTransactionStatus(id, models.TransactionStatusVoided)
}
