package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	grpcapi "sorbet-validators/internal/api/grpc"
)

// clientEnv - настройки клиента из окружения (и .env файла)
type clientEnv struct {
	Address string `env:"SERVER_ADDRESS" envDefault:"localhost:50051"`
	Token   string `env:"AUTH_TOKEN"`
}

var (
	clientAddr    string
	clientToken   string
	clientTimeout time.Duration

	clientIR     string
	clientSource string
	watchCount   int
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Call a running compile service over gRPC",
	Long: `Client commands for CompilerService.

The address and token default to SERVER_ADDRESS (localhost:50051)
and AUTH_TOKEN from the environment or the --env-file.`,
}

var clientCompileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile an IR file on the server",
	RunE:  runClientCompile,
}

var clientGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a stored compilation",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientGet,
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored compilations",
	RunE:  runClientList,
}

var clientWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print compilations as they finish",
	RunE:  runClientWatch,
}

func init() {
	rootCmd.AddCommand(clientCmd)
	clientCmd.AddCommand(clientCompileCmd, clientGetCmd, clientListCmd, clientWatchCmd)

	clientCmd.PersistentFlags().StringVar(&clientAddr, "addr", "", "gRPC server address (default $SERVER_ADDRESS)")
	clientCmd.PersistentFlags().StringVar(&clientToken, "token", "", "bearer token (default $AUTH_TOKEN)")
	clientCmd.PersistentFlags().DurationVar(&clientTimeout, "timeout", 10*time.Second, "timeout for unary calls")

	clientCompileCmd.Flags().StringVar(&clientIR, "ir", "", "IR file (yaml or json)")
	clientCompileCmd.Flags().StringVar(&clientSource, "source", "", "source description for the file header")
	_ = clientCompileCmd.MarkFlagRequired("ir")

	clientWatchCmd.Flags().IntVar(&watchCount, "count", 0, "stop after this many compilations (0 - until interrupted)")
}

// clientSettings - окружение, поверх которого применяются флаги
func clientSettings() (clientEnv, error) {
	var e clientEnv
	if err := env.Parse(&e); err != nil {
		return clientEnv{}, fmt.Errorf("failed to parse client environment: %w", err)
	}
	if clientAddr != "" {
		e.Address = clientAddr
	}
	if clientToken != "" {
		e.Token = clientToken
	}
	return e, nil
}

// dial подключается к серверу; возвращенный контекст несет токен авторизации.
func dial(ctx context.Context) (*grpcapi.CompilerClient, context.Context, func(), error) {
	settings, err := clientSettings()
	if err != nil {
		return nil, nil, nil, err
	}

	conn, err := grpc.NewClient(settings.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create client: %w", err)
	}
	if settings.Token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+settings.Token)
	}
	log.WithField("addr", settings.Address).Debug("connecting to gRPC server")
	return grpcapi.NewCompilerClient(conn), ctx, func() { _ = conn.Close() }, nil
}

func printMessage(w io.Writer, m proto.Message) error {
	data, err := protojson.MarshalOptions{Multiline: true}.Marshal(m)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func runClientCompile(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(clientIR)
	if err != nil {
		return fmt.Errorf("failed to read IR: %w", err)
	}

	req := &structpb.Struct{Fields: map[string]*structpb.Value{"ir": structpb.NewStringValue(string(data))}}
	if clientSource != "" {
		req.Fields["options"] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"source": structpb.NewStringValue(clientSource),
		}})
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
	defer cancel()
	client, ctx, closeConn, err := dial(ctx)
	if err != nil {
		return err
	}
	defer closeConn()

	resp, err := client.Compile(ctx, req)
	if err != nil {
		return err
	}
	return printMessage(cmd.OutOrStdout(), resp)
}

func runClientGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
	defer cancel()
	client, ctx, closeConn, err := dial(ctx)
	if err != nil {
		return err
	}
	defer closeConn()

	resp, err := client.GetCompilation(ctx, wrapperspb.String(args[0]))
	if err != nil {
		return err
	}
	return printMessage(cmd.OutOrStdout(), resp)
}

func runClientList(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
	defer cancel()
	client, ctx, closeConn, err := dial(ctx)
	if err != nil {
		return err
	}
	defer closeConn()

	resp, err := client.ListCompilations(ctx, &emptypb.Empty{})
	if err != nil {
		return err
	}
	return printMessage(cmd.OutOrStdout(), resp)
}

func runClientWatch(cmd *cobra.Command, _ []string) error {
	client, ctx, closeConn, err := dial(cmd.Context())
	if err != nil {
		return err
	}
	defer closeConn()

	stream, err := client.WatchCompilations(ctx, &emptypb.Empty{})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	log.Info("subscribed to compilations")

	for received := 0; watchCount == 0 || received < watchCount; received++ {
		c, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			log.Info("stream closed by server")
			return nil
		}
		if err != nil {
			return err
		}
		if err := printMessage(cmd.OutOrStdout(), c); err != nil {
			return err
		}
	}
	return nil
}
