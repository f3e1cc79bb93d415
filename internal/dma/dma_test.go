package dma_test

import (
	"testing"

	"github.com/jetsetilly/psx/internal/dma"
	"github.com/jetsetilly/psx/test"
)

func TestControlRegisterResetValue(t *testing.T) {
	c := dma.NewController()
	test.ExpectEquality(t, c.Control.Read(), uint32(0x07654321))
}

func TestChannelActiveBurstRequiresManualTrigger(t *testing.T) {
	var ch dma.Channel
	ch.Sync = dma.SyncBurst
	ch.TransferActive = true
	test.ExpectFailure(t, ch.Active())

	ch.ManualTrigger = true
	test.ExpectSuccess(t, ch.Active())
}

func TestChannelActiveLinkedListIgnoresManualTrigger(t *testing.T) {
	var ch dma.Channel
	ch.Sync = dma.SyncLinkedList
	ch.TransferActive = true
	test.ExpectSuccess(t, ch.Active())
}

func TestControllerWrite32ReportsTrigger(t *testing.T) {
	c := dma.NewController()
	// channel 2 (GPU) control register at 0x1F8010A8
	_, triggered := c.Write32(0x1F8010A8, 1<<24|1<<28)
	test.ExpectSuccess(t, triggered)
}

func TestInterruptRegisterMasterFlag(t *testing.T) {
	var irq dma.InterruptRegister
	irq.Write(1<<23 | 0x7F<<16) // master enable, all channels unmasked
	irq.RaiseChannel(dma.ChannelGPU)
	test.ExpectSuccess(t, irq.MasterFlag)

	// ack channel 2
	irq.Write(1 << (24 + dma.ChannelGPU))
	test.ExpectFailure(t, irq.MasterFlag)
}
