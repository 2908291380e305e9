package commands

import (
	"context"

	"github.com/vestsk/tippebot/internal/usecase"
)

const (
	PongMessage  = "Pong! ✅"
	KaimiMessage = "<:hou:752546616526897243> LET'S GO JOHN CHRISTIAN KA'IMINOEAULOAMEKA'IKEOKEKUMUPA'A \"KA'IMI\" FAIRBAIRN! <:hou:752546616526897243>"
	DocMessage   = "https://docs.google.com/spreadsheets/d/1PBCDP_9ucjJ00RIdROJ-sXNJsQEhJoIlDMSZ3DGBvx4/edit?usp=sharing"
	DoinkMessage = "<:lamarbruh:764434396240805898> DOINK <:lamarbruh:764434396240805898> "
)

func (d *Dispatcher) register() map[string]command {
	cmds := map[string]command{
		"ping":  {run: canned(PongMessage)},
		"kaimi": {run: canned(KaimiMessage)},
		"doc":   {run: canned(DocMessage)},
		"doink": {run: canned(DoinkMessage)},
	}
	if d.services.Matchups != nil {
		cmds["kamper"] = command{run: d.postMatchups, privileged: true}
	}
	if d.services.Export != nil {
		cmds["eksporter"] = command{run: d.export, privileged: true}
	}
	if d.services.Reconcile != nil {
		cmds["resultater"] = command{run: d.reconcile, privileged: true}
	}
	if d.services.PPR != nil {
		cmds["ppr"] = command{run: d.ppr, privileged: true}
	}
	return cmds
}

func canned(text string) handlerFunc {
	return func(ctx context.Context, req Request) error {
		return req.Reply(ctx, text)
	}
}

func (d *Dispatcher) postMatchups(ctx context.Context, req Request) error {
	week, err := req.Week()
	if err != nil {
		return err
	}
	_, err = d.services.Matchups.Post(ctx, req.ChannelID, week)
	return err
}

func (d *Dispatcher) export(ctx context.Context, req Request) error {
	week, err := req.Week()
	if err != nil {
		return err
	}
	if _, err := d.services.Export.Export(ctx, req.ChannelID, week); err != nil {
		return err
	}
	return req.Reply(ctx, usecase.ExportDoneMessage)
}

func (d *Dispatcher) reconcile(ctx context.Context, req Request) error {
	week, err := req.Week()
	if err != nil {
		return err
	}
	result, err := d.services.Reconcile.Reconcile(ctx, week)
	if err != nil {
		return err
	}
	for _, text := range usecase.ReconcileMessages(result) {
		if err := req.Reply(ctx, text); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) ppr(ctx context.Context, req Request) error {
	_, err := d.services.PPR.Run(ctx, req.Reply)
	return err
}
