package services

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/codyseavey/tcg-scanner/internal/models"
)

func apiPikachuCard() models.ValidatedCard {
	return models.ValidatedCard{
		ID:     "base1-58",
		Name:   "Pikachu",
		Number: "58",
		Rarity: "Common",
		Set:    models.CardSet{ID: "base1", Name: "Base", PrintedTotal: 102},
		TCGPlayer: &models.TCGPlayerListing{
			URL: "https://prices.pokemontcg.io/tcgplayer/base1-58",
			Prices: map[string]models.TCGPlayerPrices{
				"normal": {Low: 2, Mid: 4, High: 9, Market: 3.5},
			},
		},
	}
}

var _ = Describe("PokemonTCGService", func() {
	var (
		server  *ghttp.Server
		service *PokemonTCGService
		ctx     context.Context
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		service = NewPokemonTCGService(server.URL(), "test-key")
		ctx = context.Background()
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("ValidateCard", func() {
		When("the name and set number match a card", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodGet, "/cards"),
					ghttp.VerifyHeaderKV("X-Api-Key", "test-key"),
					ghttp.VerifyFormKV("q", `name:"Pikachu" number:58 set.printedTotal:102`),
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]interface{}{
						"data":       []models.ValidatedCard{apiPikachuCard()},
						"totalCount": 1,
					}),
				))
			})

			It("returns the matched card", func() {
				card, err := service.ValidateCard(ctx, "Pikachu", "058/102")
				Expect(err).NotTo(HaveOccurred())
				Expect(card).NotTo(BeNil())
				Expect(card.ID).To(Equal("base1-58"))
				Expect(card.SetNumber()).To(Equal("58/102"))
			})
		})

		When("the exact query finds nothing", func() {
			BeforeEach(func() {
				other := apiPikachuCard()
				other.ID = "basep-1"
				other.Number = "1"
				server.AppendHandlers(
					ghttp.CombineHandlers(
						ghttp.VerifyFormKV("q", `name:"Pikachu" number:58 set.printedTotal:102`),
						ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]interface{}{"data": []models.ValidatedCard{}}),
					),
					ghttp.CombineHandlers(
						ghttp.VerifyFormKV("q", `name:"Pikachu"`),
						ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]interface{}{
							"data": []models.ValidatedCard{other, apiPikachuCard()},
						}),
					),
				)
			})

			It("falls back to a name search and prefers the matching number", func() {
				card, err := service.ValidateCard(ctx, "Pikachu", "58/102")
				Expect(err).NotTo(HaveOccurred())
				Expect(card.ID).To(Equal("base1-58"))
				Expect(server.ReceivedRequests()).To(HaveLen(2))
			})
		})

		When("no card has the name", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]interface{}{"data": []models.ValidatedCard{}}))
			})

			It("returns nil without error", func() {
				card, err := service.ValidateCard(ctx, "Missingno", "")
				Expect(err).NotTo(HaveOccurred())
				Expect(card).To(BeNil())
			})
		})

		When("the API fails", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "boom"))
			})

			It("returns the error", func() {
				_, err := service.ValidateCard(ctx, "Pikachu", "")
				Expect(err).To(MatchError(ContainSubstring("status 500")))
			})
		})

		It("does not query for a blank name", func() {
			card, err := service.ValidateCard(ctx, "  ", "58/102")
			Expect(err).NotTo(HaveOccurred())
			Expect(card).To(BeNil())
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})
	})

	Describe("GetCard", func() {
		It("returns nil for an unknown id", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/cards/nope-1"),
				ghttp.RespondWith(http.StatusNotFound, `{"error":"not found"}`),
			))
			card, err := service.GetCard(ctx, "nope-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(card).To(BeNil())
		})
	})

	Describe("TCGPlayerProvider", func() {
		It("turns the embedded TCGPlayer block into a price source", func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]interface{}{
				"data": []models.ValidatedCard{apiPikachuCard()},
			}))

			sources, err := NewTCGPlayerProvider(service).FetchPrices(ctx, models.CardInfo{Name: "Pikachu", SetNumber: "58/102"})
			Expect(err).NotTo(HaveOccurred())
			Expect(sources).To(HaveLen(1))
			Expect(sources[0].Source).To(Equal(models.SourceTCGPlayer))
			Expect(sources[0].Prices).To(HaveKeyWithValue(models.PriceKeyMarket, 3.5))
			Expect(sources[0].URL).To(ContainSubstring("base1-58"))
		})
	})
})

var _ = Describe("JustTCGService", func() {
	var (
		server  *ghttp.Server
		service *JustTCGService
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		service = NewJustTCGService("jt-key", 5).WithBaseURL(server.URL())
	})

	AfterEach(func() {
		server.Close()
	})

	It("maps conditions of the normal printing into a JustTCG source", func() {
		server.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodGet, "/cards"),
			ghttp.VerifyHeaderKV("x-api-key", "jt-key"),
			ghttp.VerifyFormKV("game", "pokemon"),
			ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]interface{}{
				"data": []map[string]interface{}{
					{
						"id": "pokemon-base-set-pikachu-58", "name": "Pikachu", "set": "base-set", "number": "58/102",
						"variants": []map[string]interface{}{
							{"condition": "Near Mint", "printing": "1st Edition", "price": 90.0},
							{"condition": "Near Mint", "printing": "Normal", "price": 12.0},
							{"condition": "Lightly Played", "printing": "Normal", "price": 9.5},
							{"condition": "Sealed", "printing": "Normal", "price": 99.0},
						},
					},
				},
			}),
		))

		sources, err := service.FetchPrices(context.Background(), models.CardInfo{Name: "Pikachu", SetNumber: "58/102"})
		Expect(err).NotTo(HaveOccurred())
		Expect(sources).To(HaveLen(1))
		Expect(sources[0].Source).To(Equal(models.SourceJustTCG))
		Expect(sources[0].Prices).To(Equal(map[string]float64{"nm": 12.0, "lp": 9.5}))
		Expect(sources[0].Metadata).To(HaveKeyWithValue("printing", "Normal"))
		Expect(service.GetRequestsRemaining()).To(Equal(4))
	})

	It("skips the request without an API key", func() {
		keyless := NewJustTCGService("", 5).WithBaseURL(server.URL())
		sources, err := keyless.FetchPrices(context.Background(), models.CardInfo{Name: "Pikachu"})
		Expect(err).NotTo(HaveOccurred())
		Expect(sources).To(BeEmpty())
		Expect(server.ReceivedRequests()).To(BeEmpty())
	})

	It("fails once the daily quota is spent", func() {
		limited := NewJustTCGService("jt-key", 1).WithBaseURL(server.URL())
		Expect(limited.checkDailyLimit()).To(BeTrue())

		_, err := limited.FetchPrices(context.Background(), models.CardInfo{Name: "Pikachu"})
		Expect(err).To(MatchError(ContainSubstring("daily limit")))
	})
})
