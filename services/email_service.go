package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/arenaforge/esports-platform/config"
	"github.com/arenaforge/esports-platform/repositories"
)

// EmailService sends settlement notifications over SMTP. It is only ever
// invoked from the background worker; a failed send is logged and retried
// by the queue, never surfaced to an API caller.
type EmailService struct {
	cfg             *config.Config
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	userRepo        repositories.UserRepository
	logger          *slog.Logger
}

func NewEmailService(
	cfg *config.Config,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	userRepo repositories.UserRepository,
	logger *slog.Logger,
) *EmailService {
	return &EmailService{
		cfg:             cfg,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		logger:          logger,
	}
}

// NotifyTournamentSettled emails every participant of a tournament about
// its settlement outcome ("completed" or "cancelled").
func (s *EmailService) NotifyTournamentSettled(ctx context.Context, tournamentID int, event string) error {
	if s.cfg.SMTPHost == "" {
		s.logger.Debug("SMTP not configured, skipping settlement notification",
			slog.Int("tournament_id", tournamentID))
		return nil
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return err
	}
	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID, nil)
	if err != nil {
		return err
	}

	var subject, body string
	switch event {
	case "cancelled":
		subject = fmt.Sprintf("Tournament %q was cancelled", tournament.Name)
		body = fmt.Sprintf("<p>%s has been cancelled. Your entry fee of %s has been refunded to your wallet.</p>",
			tournament.Name, tournament.EntryFeePerPerson.StringFixed(2))
	default:
		subject = fmt.Sprintf("Tournament %q has finished", tournament.Name)
		body = fmt.Sprintf("<p>%s has finished. Prize winnings, where applicable, have been credited to your wallet.</p>", tournament.Name)
	}

	var sendErrs []error
	for _, p := range participants {
		user, userErr := s.userRepo.GetByID(ctx, p.UserID)
		if userErr != nil {
			sendErrs = append(sendErrs, userErr)
			continue
		}
		if sendErr := s.send([]string{user.Email}, subject, body); sendErr != nil {
			s.logger.Warn("failed to send settlement email",
				slog.String("email", user.Email), slog.Any("error", sendErr))
			sendErrs = append(sendErrs, sendErr)
		}
	}
	return errors.Join(sendErrs...)
}

func (s *EmailService) send(to []string, subject, body string) error {
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	msg := []byte("To: " + to[0] + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	tlsConfig := &tls.Config{ServerName: s.cfg.SMTPHost}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("TLS connection failed: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
	} else {
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("SMTP connection failed: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO failed: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return w.Close()
}
