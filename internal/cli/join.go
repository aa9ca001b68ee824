package cli

import (
	"context"
	"errors"
	"fmt"
	"os/user"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ishaan-arora-1/classroom-live/internal/classroom"
	"github.com/ishaan-arora-1/classroom-live/internal/config"
	"github.com/ishaan-arora-1/classroom-live/internal/signaling"
	"github.com/ishaan-arora-1/classroom-live/internal/ui"
	"github.com/ishaan-arora-1/classroom-live/internal/voice"
)

var (
	flagJoinName     string
	flagJoinDomain   string
	flagJoinSTUN     string
	flagJoinTURN     string
	flagJoinTURNUser string
	flagJoinTURNPass string
	flagJoinRelay    bool
	flagJoinHost     bool
	flagJoinAudio    string
)

var joinCmd = &cobra.Command{
	Use:     "join <room-id>",
	Aliases: []string{"j"},
	Short:   "Join a classroom session",
	Long: `Join a classroom session by room ID.

Examples:
  classroom join algebra-101 --name Priya
  classroom join algebra-101 --name "Dr. Rao" --host --audio lecture.ogg
  classroom join algebra-101 --name Priya --audio mic.ogg --relay`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinClassroom(args[0])
	},
}

func joinClassroom(roomID string) error {
	cfg, err := config.Load(config.Options{
		Domain:     flagJoinDomain,
		STUNServer: flagJoinSTUN,
		TURNServer: flagJoinTURN,
		TURNUser:   flagJoinTURNUser,
		TURNPass:   flagJoinTURNPass,
		ForceRelay: flagJoinRelay,
	})
	if err != nil {
		return classroom.NewError("load config", err)
	}

	name := flagJoinName
	if name == "" {
		if u, err := user.Current(); err == nil {
			name = u.Username
		} else {
			name = "anonymous"
		}
	}

	selfID := uuid.NewString()

	// Microphone setup first: a capture failure only disables voice,
	// the classroom session itself continues.
	var device voice.Device
	if flagJoinAudio != "" {
		device, err = voice.NewOggDevice(flagJoinAudio, voice.DefaultCaptureOptions())
		if err != nil {
			ui.PrintWarning(fmt.Sprintf("voice disabled: %v", err))
			device = nil
		}
	}

	fmt.Println()
	stopSpinner := ui.RunConnectionSpinner("Connecting to relay...")
	client := signaling.NewClient(cfg.WebSocketURL)
	err = client.Connect(context.Background())
	stopSpinner()
	if err != nil {
		if errors.Is(err, signaling.ErrRelayUnavailable) {
			return classroom.WrapError("connect", classroom.ErrRelayGone, cfg.WebSocketURL)
		}
		return classroom.NewError("connect", err)
	}

	session, err := NewSession(cfg, client, SessionOptions{
		RoomID: roomID,
		SelfID: selfID,
		Name:   name,
		Host:   flagJoinHost,
		Device: device,
	})
	if err != nil {
		client.Close()
		return err
	}
	defer session.Close()

	return session.Run()
}

func init() {
	joinCmd.Flags().StringVarP(&flagJoinName, "name", "n", "", "Display name shown on your seat")
	joinCmd.Flags().StringVarP(&flagJoinDomain, "domain", "d", "", "Relay server domain")
	joinCmd.Flags().StringVar(&flagJoinSTUN, "stun", "", "STUN server URL")
	joinCmd.Flags().StringVar(&flagJoinTURN, "turn", "", "TURN server URL")
	joinCmd.Flags().StringVar(&flagJoinTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagJoinTURNPass, "turn-pass", "", "TURN password")
	joinCmd.Flags().BoolVar(&flagJoinRelay, "relay", false, "Force media through the TURN relay")
	joinCmd.Flags().BoolVar(&flagJoinHost, "host", false, "Act as session host (initiates voice offers)")
	joinCmd.Flags().StringVarP(&flagJoinAudio, "audio", "a", "", "Ogg Opus audio source for the outgoing voice stream")

	rootCmd.AddCommand(joinCmd)
}
