package tgauth

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	attemptKeyPrefix  = "tg_session"
	codeHashKeyPrefix = "phone_code_hash"

	attemptRecordVersion1 = 1
)

var (
	errAttemptNotFound         = errors.New("login attempt not found")
	errCodeHashNotFound        = errors.New("code hash not found")
	errAttemptStoreUnavailable = errors.New("attempt store redis unavailable")
)

type attemptStage uint8

const (
	stageCodeSent attemptStage = iota + 1
	stageTwoFAPending
)

// attemptRecord is the per-phone in-flight login state. Session is the opaque
// provider blob and is never interpreted. Expiry is delegated entirely to the
// Redis key TTL.
type attemptRecord struct {
	Stage     attemptStage
	UpdatedAt int64
	Session   string
}

type loginAttemptStore struct {
	redis *redis.Client
}

func newLoginAttemptStore(redisClient *redis.Client) *loginAttemptStore {
	return &loginAttemptStore{redis: redisClient}
}

func (s *loginAttemptStore) attemptKey(phone string) string {
	return attemptKeyPrefix + ":" + phone
}

func (s *loginAttemptStore) codeHashKey(phone string) string {
	return codeHashKeyPrefix + ":" + phone
}

func (s *loginAttemptStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", errAttemptStoreUnavailable, err)
	}
	return nil
}

func (s *loginAttemptStore) SaveAttempt(ctx context.Context, phone string, record *attemptRecord, ttl time.Duration) error {
	encoded, err := encodeAttemptRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.attemptKey(phone), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errAttemptStoreUnavailable, err)
	}
	return nil
}

func (s *loginAttemptStore) GetAttempt(ctx context.Context, phone string) (*attemptRecord, error) {
	data, err := s.redis.Get(ctx, s.attemptKey(phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errAttemptNotFound
		}
		return nil, fmt.Errorf("%w: %v", errAttemptStoreUnavailable, err)
	}
	return decodeAttemptRecord(data)
}

func (s *loginAttemptStore) DeleteAttempt(ctx context.Context, phone string) error {
	if err := s.redis.Del(ctx, s.attemptKey(phone)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errAttemptStoreUnavailable, err)
	}
	return nil
}

func (s *loginAttemptStore) SaveCodeHash(ctx context.Context, phone, codeHash string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.codeHashKey(phone), codeHash, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errAttemptStoreUnavailable, err)
	}
	return nil
}

func (s *loginAttemptStore) GetCodeHash(ctx context.Context, phone string) (string, error) {
	codeHash, err := s.redis.Get(ctx, s.codeHashKey(phone)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errCodeHashNotFound
		}
		return "", fmt.Errorf("%w: %v", errAttemptStoreUnavailable, err)
	}
	return codeHash, nil
}

func (s *loginAttemptStore) DeleteCodeHash(ctx context.Context, phone string) error {
	if err := s.redis.Del(ctx, s.codeHashKey(phone)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errAttemptStoreUnavailable, err)
	}
	return nil
}

func encodeAttemptRecord(record *attemptRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(attemptRecordVersion1)
	buf.WriteByte(byte(record.Stage))

	if err := binary.Write(&buf, binary.BigEndian, record.UpdatedAt); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, uint32(len(record.Session))); err != nil {
		return nil, err
	}
	buf.WriteString(record.Session)

	return buf.Bytes(), nil
}

func decodeAttemptRecord(data []byte) (*attemptRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != attemptRecordVersion1 {
		return nil, errors.New("invalid attempt record version")
	}

	stage, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &attemptRecord{
		Stage: attemptStage(stage),
	}
	if record.Stage != stageCodeSent && record.Stage != stageTwoFAPending {
		return nil, errors.New("invalid attempt record stage")
	}

	if err := binary.Read(reader, binary.BigEndian, &record.UpdatedAt); err != nil {
		return nil, err
	}

	var sessionLen uint32
	if err := binary.Read(reader, binary.BigEndian, &sessionLen); err != nil {
		return nil, err
	}
	session := make([]byte, sessionLen)
	if _, err := io.ReadFull(reader, session); err != nil {
		return nil, err
	}
	record.Session = string(session)

	return record, nil
}
