// Serve command for the biblia CLI.
package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblia/internal/ipc"
	"github.com/mesh-intelligence/biblia/internal/logging"
)

const defaultServeAddr = "127.0.0.1:7717"

func newServeCmd(c *cli) *cobra.Command {
	var (
		addr    string
		origins []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the IPC channels over a WebSocket",
		Long: `Serve exposes every facade operation as a channel on ws://<addr>/ipc.
Each text message is a request {"id","channel","args"}; each reply carries
the same id and a {success,data,error} result. Storage is initialized in
the background; early requests wait for it or are served by the JSON store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			go func() {
				if err := a.Service.Initialize(ctx); err != nil {
					logging.Error("storage initialization failed", "error", err)
				}
			}()

			d := ipc.NewDispatcher(a.Service, ipc.WithDispatcherLogger(logging.Component("ipc")))
			srv := ipc.NewServer(d,
				ipc.WithAllowedOrigins(origins...),
				ipc.WithServerLogger(logging.Component("ipc")),
			)
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultServeAddr, "listen address")
	cmd.Flags().StringSliceVar(&origins, "origin", nil, `allowed browser origins ("*" for any)`)
	return cmd
}
